package server

import (
	"net/url"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/addyspiller/prisere/constants"
	"github.com/addyspiller/prisere/internal/storage"
)

// InitUploadRequest asks for a presigned slot for one policy document.
type InitUploadRequest struct {
	Filename    string `json:"filename" validate:"required"`
	ContentType string `json:"content_type" validate:"required"`
}

// InitUpload hands the client a presigned PUT URL. The document itself never
// travels through this API.
func (s *Server) InitUpload(c *fiber.Ctx) error {
	userID := currentUserID(c)

	var req InitUploadRequest
	if err := c.BodyParser(&req); err != nil {
		return RespondWithError(c, fiber.StatusBadRequest, "invalid request body")
	}
	if err := s.validate.Struct(&req); err != nil {
		return RespondWithError(c, fiber.StatusBadRequest,
			strings.Join(FormatValidationErrors(err), "; "))
	}
	if !constants.IsAllowedContentType(req.ContentType) {
		return RespondWithError(c, fiber.StatusBadRequest,
			"unsupported content type (PDF only)")
	}

	key := storage.NewUploadKey(userID, req.Filename)
	url, err := s.deps.Blobs.PresignedPut(c.UserContext(), key)
	if err != nil {
		return RespondWithAppError(c, err, "upload not found")
	}

	s.log.Info("upload.init", "user_id", userID, "key", key)
	return RespondWithJSON(c, fiber.StatusOK, fiber.Map{
		"key":            key,
		"upload_url":     url,
		"expires_in_s":   int(s.deps.Storage.PresignExpiry.Seconds()),
		"max_file_bytes": s.deps.Storage.MaxFileSizeBytes(),
	})
}

// VerifyUpload confirms the client's PUT landed and the object is within the
// size cap, before a job references it.
func (s *Server) VerifyUpload(c *fiber.Ctx) error {
	key, err := s.uploadKeyFromPath(c)
	if err != nil {
		return err
	}

	info, err := s.deps.Blobs.Stat(c.UserContext(), key)
	if err != nil {
		return RespondWithAppError(c, err, "upload not found")
	}
	if info.Size > s.deps.Storage.MaxFileSizeBytes() {
		return RespondWithError(c, fiber.StatusBadRequest, "uploaded file exceeds size limit")
	}

	return RespondWithJSON(c, fiber.StatusOK, fiber.Map{
		"key":          info.Key,
		"size":         info.Size,
		"content_type": info.ContentType,
	})
}

// DeleteUpload removes an uploaded document that will not be analyzed.
func (s *Server) DeleteUpload(c *fiber.Ctx) error {
	key, err := s.uploadKeyFromPath(c)
	if err != nil {
		return err
	}
	if err := s.deps.Blobs.Delete(c.UserContext(), key); err != nil {
		return RespondWithAppError(c, err, "upload not found")
	}
	s.log.Info("upload.deleted", "key", key)
	return c.SendStatus(fiber.StatusNoContent)
}

// uploadKeyFromPath reads the wildcard key and enforces the caller's
// namespace.
func (s *Server) uploadKeyFromPath(c *fiber.Ctx) (string, error) {
	key, err := unescapeKey(c.Params("+"))
	if err != nil || key == "" {
		return "", RespondWithError(c, fiber.StatusBadRequest, "invalid upload key")
	}
	if !strings.HasPrefix(key, "uploads/"+currentUserID(c)+"/") {
		return "", RespondWithError(c, fiber.StatusNotFound, "upload not found")
	}
	return key, nil
}

// unescapeKey undoes percent escapes Fiber leaves in wildcard params.
func unescapeKey(raw string) (string, error) {
	return url.PathUnescape(raw)
}
