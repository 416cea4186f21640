package storage

import (
	"path"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/dmitrymomot/assetflow/pkg/asset"
	"github.com/dmitrymomot/assetflow/pkg/sanitizer"
)

// Object metadata keys.
const (
	MetaCategory         = "category"
	MetaMedia            = "media"
	MetaTransform        = "transform"
	MetaOriginalFilename = "original-filename"
)

// newObjectName generates a fresh key and the file name it is stored under.
func newObjectName(u asset.Upload) (key, name string) {
	key = uuid.Must(uuid.NewV7()).String()
	return key, key + asset.Ext(u)
}

// keyFromName strips the final extension from a stored file name.
func keyFromName(objectPath string) string {
	name := path.Base(objectPath)
	return strings.TrimSuffix(name, path.Ext(name))
}

// validKey reports whether key can be used inside a folder without escaping it.
func validKey(key string) bool {
	return key != "" && key != "." && key != ".." && !strings.ContainsAny(key, `/\`)
}

// contentType returns the upload MIME type or a binary fallback.
func contentType(u asset.Upload) string {
	if ct := strings.TrimSpace(u.MimeType); ct != "" {
		return ct
	}
	return "application/octet-stream"
}

// objectMetadata builds the user metadata stored next to an object.
// The transform is consumed by the CDN in front of the bucket.
func objectMetadata(p asset.Policy, u asset.Upload) map[string]string {
	meta := map[string]string{
		MetaCategory: string(p.Category),
		MetaMedia:    string(p.Media),
	}
	if p.Transform != nil {
		meta[MetaTransform] = p.Transform.String()
	}
	if name := sanitizer.Filename(u.Filename); name != "" {
		meta[MetaOriginalFilename] = name
	}
	return meta
}

// folderSegmentRegex matches characters that are not safe for folder segments.
var folderSegmentRegex = regexp.MustCompile(`[^a-zA-Z0-9\-_.]`)

// sanitizeFolder cleans every segment of a folder path.
// Traversal segments are dropped.
func sanitizeFolder(folder string) string {
	parts := strings.Split(strings.Trim(folder, " /\\"), "/")
	clean := parts[:0]
	for _, part := range parts {
		part = strings.ReplaceAll(strings.TrimSpace(part), "..", "")
		part = folderSegmentRegex.ReplaceAllString(part, "_")
		if part == "" || part == "." {
			continue
		}
		clean = append(clean, part)
	}
	return strings.Join(clean, "/")
}
