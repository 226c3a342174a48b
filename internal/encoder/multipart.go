package encoder

import (
	"bytes"
	"fmt"
	"io"
	"mime/multipart"
	"net/textproto"
	"strings"
)

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

// Write streams the payload to w as multipart/form-data and returns the
// Content-Type header value (including the boundary) to send with it.
func (p *Payload) Write(w io.Writer) (string, error) {
	writer := multipart.NewWriter(w)

	for _, f := range p.fields {
		if err := writer.WriteField(f.Name, f.Value); err != nil {
			return "", fmt.Errorf("failed to write field %s: %w", f.Name, err)
		}
	}

	for _, file := range p.files {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`,
			quoteEscaper.Replace(file.FieldName), quoteEscaper.Replace(file.Filename)))
		contentType := file.ContentType
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		h.Set("Content-Type", contentType)

		part, err := writer.CreatePart(h)
		if err != nil {
			return "", fmt.Errorf("failed to create part for %s: %w", file.Filename, err)
		}
		if _, err := io.Copy(part, bytes.NewReader(file.Data)); err != nil {
			return "", fmt.Errorf("failed to copy file %s: %w", file.Filename, err)
		}
	}

	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("failed to close multipart writer: %w", err)
	}
	return writer.FormDataContentType(), nil
}

// Body renders the payload into memory, for transports that need a
// rewindable body.
func (p *Payload) Body() (*bytes.Buffer, string, error) {
	var body bytes.Buffer
	contentType, err := p.Write(&body)
	if err != nil {
		return nil, "", err
	}
	return &body, contentType, nil
}
