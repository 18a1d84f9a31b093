package testutil

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/textproto"
	"testing"

	"github.com/stretchr/testify/require"
)

var headers = map[string][]byte{
	"pdf":  []byte("%PDF-1.7\n"),
	"doc":  {0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1},
	"docx": {0x50, 0x4B, 0x03, 0x04, 0x14, 0x00, 0x06, 0x00},
	"jpg":  {0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10, 'J', 'F', 'I', 'F'},
	"jpeg": {0xFF, 0xD8, 0xFF, 0xE1, 0x00, 0x10, 'E', 'x', 'i', 'f'},
	"png":  {0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A, 0x00, 0x00, 0x00, 0x0D},
}

var contentTypes = map[string]string{
	"pdf":  "application/pdf",
	"doc":  "application/msword",
	"docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	"jpg":  "image/jpeg",
	"jpeg": "image/jpeg",
	"png":  "image/png",
}

// SupportedExtensions mirrors the default policy table.
func SupportedExtensions() []string {
	return []string{"pdf", "doc", "docx", "jpg", "jpeg", "png"}
}

func ContentType(ext string) string {
	return contentTypes[ext]
}

// Header returns the leading bytes of a well-formed file of the given type.
func Header(ext string) []byte {
	return bytes.Clone(headers[ext])
}

// SampleFile builds a size-byte file that starts with the type's header and
// is padded with spaces. Sizes below the header length truncate it.
func SampleFile(ext string, size int) []byte {
	h := headers[ext]
	if size <= len(h) {
		return bytes.Clone(h[:size])
	}
	return append(bytes.Clone(h), bytes.Repeat([]byte{' '}, size-len(h))...)
}

// FilePart describes the file field of a multipart body.
type FilePart struct {
	Field       string
	Filename    string
	ContentType string
	Content     []byte
}

// MultipartBody encodes fields and an optional file part and returns the body
// with its Content-Type header value.
func MultipartBody(t *testing.T, fields map[string]string, file *FilePart) (*bytes.Buffer, string) {
	t.Helper()

	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)

	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}

	if file != nil {
		field := file.Field
		if field == "" {
			field = "file"
		}
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", `form-data; name="`+field+`"; filename="`+file.Filename+`"`)
		if file.ContentType != "" {
			h.Set("Content-Type", file.ContentType)
		}
		part, err := mw.CreatePart(h)
		require.NoError(t, err)
		_, err = part.Write(file.Content)
		require.NoError(t, err)
	}

	require.NoError(t, mw.Close())
	return body, mw.FormDataContentType()
}

func JSONBody(t *testing.T, v any) *bytes.Buffer {
	t.Helper()

	data, err := json.Marshal(v)
	require.NoError(t, err)
	return bytes.NewBuffer(data)
}
