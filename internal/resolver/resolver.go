// Package resolver maps synthetic URIs onto source documents and classifies
// them against the parsed model.
//
// A synthetic URI has the form
//
//	email:/<name>?src=<absolute source path>
//
// where <name> is empty for the projection root. URIs without a src query
// are treated as host paths: the resolver walks upward until it reaches an
// existing email file and treats the rest as the synthetic path below it.
package resolver

import (
	"fmt"
	"net/url"
	"path"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"

	"github.com/brandon/emlfs/pkg/types"
)

// DefaultScheme is the URI scheme of the synthetic namespace.
const DefaultScheme = "email"

const sourceParam = "src"

// Kind is the class of a resolved path.
type Kind int

const (
	NotFound Kind = iota
	Root
	Index
	AttachmentRef
)

func (k Kind) String() string {
	switch k {
	case Root:
		return "root"
	case Index:
		return "index"
	case AttachmentRef:
		return "attachment"
	default:
		return "not-found"
	}
}

// Target is a located synthetic path: the absolute source document and the
// slash-rooted path inside its projection.
type Target struct {
	Source string
	Path   string
}

// Resolution is the classification of a Target against its Email.
type Resolution struct {
	Kind       Kind
	Source     string
	Name       string
	Attachment *types.Attachment
}

// Resolver locates and classifies synthetic paths.
type Resolver struct {
	scheme   string
	fs       afero.Fs
	supports func(source string) bool
}

// New creates a resolver. supports reports whether a host file is an email
// document that can back a projection. Schemes are case-insensitive and kept
// in lower case, the form url.Parse reports them in.
func New(scheme string, fs afero.Fs, supports func(source string) bool) *Resolver {
	if scheme == "" {
		scheme = DefaultScheme
	}
	return &Resolver{scheme: strings.ToLower(scheme), fs: fs, supports: supports}
}

// Scheme returns the URI scheme the resolver builds and accepts.
func (r *Resolver) Scheme() string {
	return r.scheme
}

// Canonical returns the identity of a source document: its cleaned absolute path.
func Canonical(source string) (string, error) {
	abs, err := filepath.Abs(source)
	if err != nil {
		return "", fmt.Errorf("failed to resolve %s: %w", source, err)
	}
	return filepath.Clean(abs), nil
}

// URI builds the synthetic URI of name inside the projection of source.
// An empty name addresses the root.
func (r *Resolver) URI(source, name string) string {
	p := (&url.URL{Path: "/" + name}).EscapedPath()
	q := url.Values{sourceParam: {source}}.Encode()
	return r.scheme + ":" + p + "?" + q
}

// RootURI is the synthetic URI of the projection root of source.
func (r *Resolver) RootURI(source string) string {
	return r.URI(source, "")
}

// IndexURI is the synthetic URI of the index document of source.
func (r *Resolver) IndexURI(source string) string {
	return r.URI(source, types.IndexName(source))
}

// Locate finds the source document behind uri. Target.Source is always in
// Canonical form. It returns types.ErrPathNotResolved when no source document
// can be found.
func (r *Resolver) Locate(uri string) (Target, error) {
	u, err := url.Parse(uri)
	if err == nil && u.Scheme == r.scheme {
		if src := u.Query().Get(sourceParam); src != "" {
			source, err := Canonical(src)
			if err != nil {
				return Target{}, fmt.Errorf("%s: %w", uri, types.ErrPathNotResolved)
			}
			return Target{Source: source, Path: innerPath(u.Path)}, nil
		}
		return r.walk(u.Path, uri)
	}
	if err == nil && u.Scheme == "file" {
		return r.walk(u.Path, uri)
	}
	return r.walk(uri, uri)
}

// walk climbs from p towards the filesystem root until it reaches an email
// document that exists as a regular file.
func (r *Resolver) walk(p, uri string) (Target, error) {
	if p == "" {
		return Target{}, fmt.Errorf("%s: %w", uri, types.ErrPathNotResolved)
	}
	current, err := Canonical(filepath.FromSlash(p))
	if err != nil {
		return Target{}, fmt.Errorf("%s: %w", uri, types.ErrPathNotResolved)
	}
	var rest []string
	for {
		if r.supports(current) {
			if info, err := r.fs.Stat(current); err == nil && info.Mode().IsRegular() {
				inner := "/" + strings.Join(reverse(rest), "/")
				return Target{Source: current, Path: inner}, nil
			}
		}
		parent := filepath.Dir(current)
		if parent == current {
			return Target{}, fmt.Errorf("%s: %w", uri, types.ErrPathNotResolved)
		}
		rest = append(rest, filepath.Base(current))
		current = parent
	}
}

// Classify resolves t against the Email loaded for t.Source.
func (r *Resolver) Classify(t Target, email *types.Email) Resolution {
	res := Resolution{Kind: NotFound, Source: t.Source}
	if t.Path == "/" {
		res.Kind = Root
		return res
	}

	name := strings.TrimPrefix(t.Path, "/")
	res.Name = name
	if name == types.IndexName(t.Source) {
		res.Kind = Index
		return res
	}
	if email != nil {
		if att, ok := email.Attachment(name); ok {
			res.Kind = AttachmentRef
			res.Attachment = att
		}
	}
	return res
}

func innerPath(p string) string {
	if p == "" {
		return "/"
	}
	if !strings.HasPrefix(p, "/") {
		return "/" + p
	}
	return p
}

func reverse(parts []string) []string {
	out := make([]string, len(parts))
	for i, s := range parts {
		out[len(parts)-1-i] = s
	}
	return out
}

// Join is a helper for callers that address a projection by host path, e.g.
// "/mail/report.eml/a.pdf".
func Join(source, name string) string {
	if name == "" {
		return source
	}
	return path.Join(filepath.ToSlash(source), name)
}
