// Package render builds the HTML index document of a projection.
package render

import (
	"bytes"
	"fmt"
	"html/template"

	"github.com/dustin/go-humanize"
	"github.com/microcosm-cc/bluemonday"

	"github.com/brandon/emlfs/pkg/types"
)

// indexTemplate renders a single-line HTML fragment: the header block, the
// attachment links when there are any, then the body.
var indexTemplate = template.Must(template.New("index").Parse(
	`From: <strong>{{.Sender}}</strong><br />` +
		`To: <strong>{{.Recipients}}</strong><br />` +
		`Subject: <strong>{{.Subject}}</strong><hr />` +
		`{{if .Links}}Attachments ({{len .Links}}):<br />` +
		`{{range .Links}}<a href='{{.Href}}'>{{.Name}} ({{.Size}})</a><br />{{end}}` +
		`<hr />{{end}}` +
		`{{.Body}}`))

type link struct {
	Href template.URL
	Name string
	Size string
}

type indexData struct {
	Sender     string
	Recipients string
	Subject    string
	Links      []link
	Body       template.HTML
}

// Renderer renders index documents.
type Renderer struct {
	policy *bluemonday.Policy
}

// New returns a renderer. With sanitize set the body HTML is filtered through
// a user-generated-content policy, otherwise it is emitted verbatim.
func New(sanitize bool) *Renderer {
	r := &Renderer{}
	if sanitize {
		r.policy = bluemonday.UGCPolicy()
	}
	return r
}

// Render produces the index document for email. pathOf returns the link
// target of an attachment.
func (r *Renderer) Render(email *types.Email, pathOf func(types.Attachment) string) ([]byte, error) {
	body := email.BodyHTML
	if r.policy != nil {
		body = r.policy.Sanitize(body)
	}

	data := indexData{
		Sender:     email.Sender,
		Recipients: email.Recipients,
		Subject:    email.Subject,
		Body:       template.HTML(body), //nolint:gosec // body HTML is trusted
	}
	for _, att := range email.Attachments {
		data.Links = append(data.Links, link{
			Href: template.URL(pathOf(att)), //nolint:gosec // synthetic URI
			Name: att.Name,
			Size: humanize.Bytes(uint64(att.ByteSize)),
		})
	}

	var buf bytes.Buffer
	if err := indexTemplate.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("failed to render index: %w", err)
	}
	return buf.Bytes(), nil
}
