package service

import (
	"io"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// Upload is a file received from a client.
type Upload struct {
	FileName    string
	ContentType string
	Size        int64
	Reader      io.Reader
}

// family returns the top-level media type, e.g. "image" for "image/png".
func (u Upload) family() string {
	family, _, _ := strings.Cut(u.ContentType, "/")
	return strings.ToLower(strings.TrimSpace(family))
}

// objectKey builds a collision-free key in folder keeping the file extension.
func objectKey(folder, fileName string) string {
	return folder + "/" + uuid.NewString() + strings.ToLower(filepath.Ext(fileName))
}
