package draft

import (
	"bytes"
	"io"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// Attachment is a pending binary file (an image picked for upload).
// Data is never modified after construction and may be shared between snapshots.
type Attachment struct {
	Filename    string `json:"filename"`
	ContentType string `json:"contentType"`
	Size        int64  `json:"size"`
	Data        []byte `json:"-"`
}

// NewAttachment wraps file bytes, sniffing the content type when the picker
// did not supply a usable one.
func NewAttachment(filename, contentType string, data []byte) Attachment {
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = mimetype.Detect(data).String()
	}
	return Attachment{
		Filename:    filename,
		ContentType: contentType,
		Size:        int64(len(data)),
		Data:        data,
	}
}

// ReadAttachment reads r fully into an Attachment
func ReadAttachment(filename, contentType string, r io.Reader) (Attachment, error) {
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, r); err != nil {
		return Attachment{}, err
	}
	return NewAttachment(filename, contentType, buf.Bytes()), nil
}

// Open returns a reader over the attachment bytes
func (a Attachment) Open() io.Reader {
	return bytes.NewReader(a.Data)
}

// IsImage reports whether the sniffed or declared type is an image
func (a Attachment) IsImage() bool {
	return strings.HasPrefix(a.ContentType, "image/")
}
