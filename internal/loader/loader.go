package loader

import (
	"path/filepath"
	"strings"

	"github.com/brandon/emlfs/pkg/types"
)

// Document is what a format loader extracts from raw bytes, before the
// filesystem metadata of the source document is attached.
type Document struct {
	Sender      string
	Recipients  string
	Subject     string
	BodyHTML    string
	Attachments []types.Attachment

	// Attachments that were dropped because they cannot be addressed by name.
	Violations []*types.AttachmentNamingViolation
}

// Func parses the raw bytes of one source document.
type Func func(data []byte) (*Document, error)

// Registry maps lower-case file extensions (without the dot) to loaders.
type Registry map[string]Func

// NewRegistry returns the loaders for .eml and .msg documents.
func NewRegistry() Registry {
	return Registry{
		"eml": LoadEML,
		"msg": LoadMSG,
	}
}

// Extension returns the lower-case extension of source without the dot.
func Extension(source string) string {
	return strings.ToLower(strings.TrimPrefix(filepath.Ext(source), "."))
}

// Supports reports whether a loader exists for the extension of source.
func (r Registry) Supports(source string) bool {
	_, ok := r[Extension(source)]
	return ok
}

// Lookup returns the loader for source, or an UnsupportedFormatError.
func (r Registry) Lookup(source string) (Func, error) {
	ext := Extension(source)
	fn, ok := r[ext]
	if !ok {
		return nil, &types.UnsupportedFormatError{Source: source, Extension: ext}
	}
	return fn, nil
}

// Load parses data with the loader for source and drops attachments that
// would collide with the index document of source.
func (r Registry) Load(source string, data []byte) (*Document, error) {
	fn, err := r.Lookup(source)
	if err != nil {
		return nil, err
	}
	doc, err := fn(data)
	if err != nil {
		return nil, &types.FormatError{Source: source, Format: Extension(source), Err: err}
	}
	doc.dropReserved(types.IndexName(source))
	return doc, nil
}

func (d *Document) dropReserved(name string) {
	kept := d.Attachments[:0]
	for i, att := range d.Attachments {
		if att.Name == name {
			d.Violations = append(d.Violations, &types.AttachmentNamingViolation{
				Index:  i,
				Name:   att.Name,
				Reason: types.ReasonReservedName,
			})
			continue
		}
		kept = append(kept, att)
	}
	d.Attachments = kept
}
