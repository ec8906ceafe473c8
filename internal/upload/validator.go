package upload

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// MaxFileSize is the upload limit in bytes.
const MaxFileSize = 10 << 20

// Content type is sniffed from the file bytes, never trusted from the
// client. The map value is the extension used for the object key.
var allowedTypes = map[string]string{
	"application/pdf": ".pdf",
	"image/jpeg":      ".jpg",
	"image/png":       ".png",
}

var (
	ErrEmptyFile       = errors.New("file is empty")
	ErrFileTooLarge    = errors.New("file exceeds the 10 MB limit")
	ErrUnsupportedType = errors.New("only PDF, JPEG and PNG files are accepted")
)

// ValidatedFile is the outcome of a successful validation.
type ValidatedFile struct {
	Content     []byte
	ContentType string
	Extension   string
}

// ValidateFile reads the upload into memory, enforces the size limit and
// sniffs the content type from the leading bytes.
func ValidateFile(r io.Reader) (*ValidatedFile, error) {
	content, err := io.ReadAll(io.LimitReader(r, MaxFileSize+1))
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}

	if len(content) == 0 {
		return nil, ErrEmptyFile
	}
	if len(content) > MaxFileSize {
		return nil, ErrFileTooLarge
	}

	contentType := http.DetectContentType(content)
	if i := strings.Index(contentType, ";"); i >= 0 {
		contentType = strings.TrimSpace(contentType[:i])
	}

	ext, ok := allowedTypes[contentType]
	if !ok {
		return nil, ErrUnsupportedType
	}

	return &ValidatedFile{
		Content:     content,
		ContentType: contentType,
		Extension:   ext,
	}, nil
}
