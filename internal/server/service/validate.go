package service

import (
	"fmt"
	"sort"
	"strings"
)

// ValidationError is a client-caused rejection of an upload. Its reason is
// surfaced verbatim in the 400 response.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Reason
}

// allowedMimeTypes is the fixed MIME-type allow-list for uploads.
var allowedMimeTypes = map[string]bool{
	"image/jpeg": true,
	"image/jpg":  true,
	"image/png":  true,
	"image/gif":  true,
	"image/bmp":  true,
	"image/webp": true,
}

// isPlaceholderName reports whether a declared filename is one of the generic
// names browsers and mobile clients substitute for the real one.
func isPlaceholderName(name string) bool {
	lower := strings.ToLower(name)
	switch lower {
	case "", "blob", "image", "unknown", "file":
		return true
	}
	return strings.HasPrefix(lower, "blob")
}

// validateUpload applies the upload acceptance rules in a fixed order:
// size ceiling, MIME allow-list, then the relaxed extension check. Extension
// mismatch alone is not fatal once the declared MIME type passed or the
// filename is a known placeholder, which keeps mobile uploads working.
func validateUpload(c UploadCandidate, maxSize int64, allowedExts map[string]bool) *ValidationError {
	if c.Size > 0 && c.Size > maxSize {
		return &ValidationError{Reason: fmt.Sprintf(
			"file size (%.1fMB) exceeds maximum allowed size (%.1fMB)",
			float64(c.Size)/(1024*1024),
			float64(maxSize)/(1024*1024),
		)}
	}

	mimeTrusted := false
	if c.ContentType != "" {
		if !allowedMimeTypes[c.ContentType] {
			return &ValidationError{Reason: fmt.Sprintf("MIME type '%s' not allowed", c.ContentType)}
		}
		mimeTrusted = true
	}

	if !mimeTrusted && !isPlaceholderName(c.Filename) {
		ext := strings.ToLower(c.Filename)
		if i := strings.LastIndex(c.Filename, "."); i >= 0 {
			ext = strings.ToLower(c.Filename[i+1:])
		}
		if !allowedExts[ext] {
			return &ValidationError{Reason: fmt.Sprintf(
				"file type '.%s' not allowed. Allowed types: %s",
				ext, joinedExtensions(allowedExts),
			)}
		}
	}

	return nil
}

func joinedExtensions(allowedExts map[string]bool) string {
	exts := make([]string, 0, len(allowedExts))
	for ext := range allowedExts {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return strings.Join(exts, ", ")
}
