package server

import (
	"path"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/addyspiller/prisere/constants"
	"github.com/addyspiller/prisere/internal/entity"
)

// CreateAnalysisRequest references two previously uploaded documents. Keys
// come from the upload init endpoint; filenames are what the user called the
// files and are kept for display.
type CreateAnalysisRequest struct {
	BaselineKey      string  `json:"baseline_key" validate:"required"`
	RenewalKey       string  `json:"renewal_key" validate:"required"`
	BaselineFilename string  `json:"baseline_filename"`
	RenewalFilename  string  `json:"renewal_filename"`
	CompanyName      *string `json:"company_name"`
	PolicyType       *string `json:"policy_type"`
}

// CreateAnalysis validates both uploads exist, creates a pending job, and
// hands it to the dispatcher. The response is the same projection the status
// endpoint serves, so clients can start polling immediately.
func (s *Server) CreateAnalysis(c *fiber.Ctx) error {
	userID := currentUserID(c)

	var req CreateAnalysisRequest
	if err := c.BodyParser(&req); err != nil {
		return RespondWithError(c, fiber.StatusBadRequest, "invalid request body")
	}
	if err := s.validate.Struct(&req); err != nil {
		return RespondWithError(c, fiber.StatusBadRequest,
			strings.Join(FormatValidationErrors(err), "; "))
	}

	// Keys are namespaced per user; a caller cannot reference someone
	// else's upload.
	prefix := "uploads/" + userID + "/"
	if !strings.HasPrefix(req.BaselineKey, prefix) || !strings.HasPrefix(req.RenewalKey, prefix) {
		return RespondWithError(c, fiber.StatusNotFound, "upload not found")
	}

	for _, key := range []string{req.BaselineKey, req.RenewalKey} {
		if _, err := s.deps.Blobs.Stat(c.UserContext(), key); err != nil {
			return RespondWithAppError(c, err, "upload not found: "+path.Base(key))
		}
	}

	if req.BaselineFilename == "" {
		req.BaselineFilename = path.Base(req.BaselineKey)
	}
	if req.RenewalFilename == "" {
		req.RenewalFilename = path.Base(req.RenewalKey)
	}

	job := entity.NewAnalysisJob(userID,
		req.BaselineKey, req.RenewalKey,
		req.BaselineFilename, req.RenewalFilename,
		req.CompanyName, req.PolicyType)

	if err := s.deps.Jobs.Create(c.UserContext(), job); err != nil {
		return RespondWithAppError(c, err, "analysis not found")
	}

	s.deps.Dispatcher.Submit(job.ID)
	s.log.Info("analysis.created", "job_id", job.ID, "user_id", userID)

	return RespondWithJSON(c, fiber.StatusCreated, job.Project(time.Now().UTC()))
}

// ListAnalyses returns the caller's jobs, newest first.
func (s *Server) ListAnalyses(c *fiber.Ctx) error {
	items, err := s.deps.Jobs.ListForUser(c.UserContext(), currentUserID(c))
	if err != nil {
		return RespondWithAppError(c, err, "analyses not found")
	}
	return RespondWithJSON(c, fiber.StatusOK, fiber.Map{"analyses": items})
}

// GetAnalysisStatus serves the polling projection for one job.
func (s *Server) GetAnalysisStatus(c *fiber.Ctx) error {
	jobID, err := parseJobID(c)
	if err != nil {
		return RespondWithError(c, fiber.StatusBadRequest, "invalid analysis id")
	}

	job, err := s.deps.Jobs.GetForUser(c.UserContext(), jobID, currentUserID(c))
	if err != nil {
		return RespondWithAppError(c, err, "analysis not found")
	}
	return RespondWithJSON(c, fiber.StatusOK, job.Project(time.Now().UTC()))
}

// GetAnalysisResult serves the full result. Non-completed jobs get a 400
// telling the client to keep polling.
func (s *Server) GetAnalysisResult(c *fiber.Ctx) error {
	jobID, err := parseJobID(c)
	if err != nil {
		return RespondWithError(c, fiber.StatusBadRequest, "invalid analysis id")
	}

	job, err := s.deps.Jobs.GetForUser(c.UserContext(), jobID, currentUserID(c))
	if err != nil {
		return RespondWithAppError(c, err, "analysis not found")
	}
	if job.Status != constants.JobStatusCompleted {
		return RespondWithError(c, fiber.StatusBadRequest,
			"analysis is not completed (status: "+string(job.Status)+")")
	}

	result, err := s.deps.Results.GetByJobID(c.UserContext(), jobID)
	if err != nil {
		return RespondWithAppError(c, err, "analysis result not found")
	}
	return RespondWithJSON(c, fiber.StatusOK, result.Project())
}

// DeleteAnalysis removes the job and its result. Repeating the delete is a
// 404, the row is already gone.
func (s *Server) DeleteAnalysis(c *fiber.Ctx) error {
	jobID, err := parseJobID(c)
	if err != nil {
		return RespondWithError(c, fiber.StatusBadRequest, "invalid analysis id")
	}

	if err := s.deps.Jobs.DeleteForUser(c.UserContext(), jobID, currentUserID(c)); err != nil {
		return RespondWithAppError(c, err, "analysis not found")
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// ExportAnalyses streams an XLSX workbook of the caller's analyses.
func (s *Server) ExportAnalyses(c *fiber.Ctx) error {
	data, err := s.deps.Exporter.ExportAnalysesXLSX(c.UserContext(), currentUserID(c))
	if err != nil {
		return RespondWithAppError(c, err, "analyses not found")
	}
	c.Set(fiber.HeaderContentType, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="analyses.xlsx"`)
	return c.Send(data)
}

func parseJobID(c *fiber.Ctx) (uuid.UUID, error) {
	return uuid.Parse(c.Params("id"))
}
