package types

import (
	"path/filepath"
	"time"
)

// Email is the normalized model of one source document. It is built once by
// a loader and never mutated afterwards.
type Email struct {
	Sender      string       `json:"sender"`
	Recipients  string       `json:"recipients"`
	Subject     string       `json:"subject"`
	BodyHTML    string       `json:"body_html"`
	Attachments []Attachment `json:"attachments"`

	// Filesystem metadata of the backing source document, not message headers.
	CreatedAt      time.Time `json:"created_at"`
	ModifiedAt     time.Time `json:"modified_at"`
	SourceByteSize int64     `json:"source_byte_size"`
}

// Attachment is a named file carried by an Email.
type Attachment struct {
	Name     string `json:"name"`
	ByteSize int64  `json:"byte_size"`
	Content  []byte `json:"-"`
}

// Attachment returns the attachment named exactly name.
func (e *Email) Attachment(name string) (*Attachment, bool) {
	for i := range e.Attachments {
		if e.Attachments[i].Name == name {
			return &e.Attachments[i], true
		}
	}
	return nil, false
}

// IndexName returns the file name of the rendered HTML document for a source
// document, e.g. "report.eml.html" for "/home/me/report.eml".
func IndexName(source string) string {
	return filepath.Base(source) + ".html"
}
