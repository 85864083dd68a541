package storage

import (
	"mime"
	"path/filepath"
	"strings"
)

// DetectContentType determines the MIME type of an object.
//
// Detection priority:
// 1. If providedType is non-empty, use it directly
// 2. Known report extensions
// 3. mime.TypeByExtension
// 4. Fall back to "application/octet-stream"
func DetectContentType(providedType, key string) string {
	if providedType != "" {
		return providedType
	}

	ext := strings.ToLower(filepath.Ext(key))
	switch ext {
	case ".csv":
		return "text/csv; charset=utf-8"
	case ".json":
		return "application/json"
	}
	if contentType := mime.TypeByExtension(ext); contentType != "" {
		return contentType
	}

	return "application/octet-stream"
}
