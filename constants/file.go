package constants

import "strings"

// AllowedContentTypes holds the upload content types accepted by the upload
// init endpoint. Policy documents are PDF only.
var AllowedContentTypes = map[string]struct{}{
	"application/pdf": {},
}

// AllowedExtensions holds the allowed file extensions for policy uploads.
var AllowedExtensions = map[string]struct{}{
	"pdf": {},
}

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// IsAllowedContentType reports whether ct is an accepted upload content type.
func IsAllowedContentType(ct string) bool {
	_, ok := AllowedContentTypes[strings.ToLower(strings.TrimSpace(ct))]
	return ok
}
