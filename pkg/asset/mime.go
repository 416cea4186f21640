package asset

import (
	"path"
	"strings"
)

// mimeExtensions maps MIME types to preferred file extensions.
var mimeExtensions = map[string]string{
	// Images
	"image/jpeg":    ".jpg",
	"image/png":     ".png",
	"image/gif":     ".gif",
	"image/webp":    ".webp",
	"image/svg+xml": ".svg",
	// Documents
	"application/pdf":    ".pdf",
	"application/msword": ".doc",
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": ".docx",
	// Video
	"video/mp4":       ".mp4",
	"video/quicktime": ".mov",
	"video/x-msvideo": ".avi",
	"video/webm":      ".webm",
}

// ExtFromMIME returns the file extension for a MIME type, or "" if unknown.
func ExtFromMIME(mimeType string) string {
	return mimeExtensions[normalizeMIME(mimeType)]
}

// Ext picks the extension for an upload: the MIME mapping first, then the
// client filename, then ".bin".
func Ext(u Upload) string {
	if ext := ExtFromMIME(u.MimeType); ext != "" {
		return ext
	}
	ext := strings.ToLower(path.Ext(u.Filename))
	if len(ext) > 1 && len(ext) <= 8 && isAlnum(ext[1:]) {
		return ext
	}
	return ".bin"
}

// normalizeMIME extracts the base MIME type, removing parameters like charset.
// Returns the lowercase MIME type.
func normalizeMIME(mimeType string) string {
	mimeType, _, _ = strings.Cut(mimeType, ";")
	return strings.TrimSpace(strings.ToLower(mimeType))
}

func isAlnum(s string) bool {
	for _, r := range s {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') {
			return false
		}
	}
	return true
}
