package upload

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pdfBytes() []byte {
	return []byte("%PDF-1.4\n1 0 obj\n<< /Type /Catalog >>\nendobj\n")
}

func pngBytes() []byte {
	return []byte{0x89, 'P', 'N', 'G', 0x0d, 0x0a, 0x1a, 0x0a, 0, 0, 0, 0}
}

func jpegBytes() []byte {
	return []byte{0xff, 0xd8, 0xff, 0xe0, 0x00, 0x10, 'J', 'F', 'I', 'F', 0x00}
}

func TestValidateFileAcceptedTypes(t *testing.T) {
	cases := []struct {
		name        string
		content     []byte
		contentType string
		extension   string
	}{
		{"pdf", pdfBytes(), "application/pdf", ".pdf"},
		{"png", pngBytes(), "image/png", ".png"},
		{"jpeg", jpegBytes(), "image/jpeg", ".jpg"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			file, err := ValidateFile(bytes.NewReader(tc.content))

			require.NoError(t, err)
			assert.Equal(t, tc.contentType, file.ContentType)
			assert.Equal(t, tc.extension, file.Extension)
			assert.Equal(t, tc.content, file.Content)
		})
	}
}

func TestValidateFileRejections(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		_, err := ValidateFile(bytes.NewReader(nil))
		assert.ErrorIs(t, err, ErrEmptyFile)
	})

	t.Run("too large", func(t *testing.T) {
		oversized := make([]byte, MaxFileSize+1)
		copy(oversized, pdfBytes())

		_, err := ValidateFile(bytes.NewReader(oversized))
		assert.ErrorIs(t, err, ErrFileTooLarge)
	})

	t.Run("exactly at the limit passes", func(t *testing.T) {
		exact := make([]byte, MaxFileSize)
		copy(exact, pdfBytes())

		_, err := ValidateFile(bytes.NewReader(exact))
		assert.NoError(t, err)
	})

	t.Run("plain text", func(t *testing.T) {
		_, err := ValidateFile(bytes.NewReader([]byte("hello, world")))
		assert.ErrorIs(t, err, ErrUnsupportedType)
	})

	t.Run("sniffing ignores claimed type", func(t *testing.T) {
		// An executable header is not admissible no matter what the
		// multipart part claimed.
		_, err := ValidateFile(bytes.NewReader([]byte{0x4d, 0x5a, 0x90, 0x00}))
		assert.ErrorIs(t, err, ErrUnsupportedType)
	})
}
