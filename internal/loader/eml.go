package loader

import (
	"bytes"
	"fmt"
	"html"
	"net/mail"
	"strings"

	"github.com/jhillyerd/enmime"
)

// LoadEML parses an RFC 822 / MIME message.
func LoadEML(data []byte) (*Document, error) {
	env, err := enmime.ReadEnvelope(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("read envelope: %w", err)
	}

	doc := &Document{
		Sender:     emlAddresses(env, "From"),
		Recipients: emlAddresses(env, "To"),
		Subject:    env.GetHeader("Subject"),
	}

	switch {
	case env.HTML != "":
		doc.BodyHTML = env.HTML
	case env.Text != "":
		doc.BodyHTML = textToHTML(env.Text)
	}

	doc.Attachments, doc.Violations = normalize(emlAttachments(env))
	return doc, nil
}

func emlAddresses(env *enmime.Envelope, header string) string {
	list, err := env.AddressList(header)
	if err != nil || len(list) == 0 {
		// Keep whatever the header says when it does not parse as an address list.
		return strings.TrimSpace(env.GetHeader(header))
	}
	return joinAddresses(list)
}

func joinAddresses(list []*mail.Address) string {
	parts := make([]string, 0, len(list))
	for _, addr := range list {
		if addr == nil {
			continue
		}
		parts = append(parts, displayAddress(addr.Name, addr.Address))
	}
	return strings.Join(parts, ", ")
}

// emlAttachments returns attachment, inline and other file parts in the
// order they appear in the MIME tree.
func emlAttachments(env *enmime.Envelope) []rawAttachment {
	files := make(map[*enmime.Part]struct{})
	for _, group := range [][]*enmime.Part{env.Attachments, env.Inlines, env.OtherParts} {
		for _, p := range group {
			files[p] = struct{}{}
		}
	}
	if len(files) == 0 {
		return nil
	}

	var raw []rawAttachment
	var walk func(p *enmime.Part)
	walk = func(p *enmime.Part) {
		for ; p != nil; p = p.NextSibling {
			if _, ok := files[p]; ok {
				raw = append(raw, rawAttachment{name: p.FileName, content: p.Content})
				delete(files, p)
			}
			walk(p.FirstChild)
		}
	}
	walk(env.Root)

	// Parts enmime reports but that are not reachable from the root.
	for _, group := range [][]*enmime.Part{env.Attachments, env.Inlines, env.OtherParts} {
		for _, p := range group {
			if _, ok := files[p]; ok {
				raw = append(raw, rawAttachment{name: p.FileName, content: p.Content})
				delete(files, p)
			}
		}
	}
	return raw
}

// textToHTML escapes a plain-text body, turning blank-line separated blocks
// into paragraphs and line breaks into <br/>.
func textToHTML(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	var b strings.Builder
	for _, block := range strings.Split(text, "\n\n") {
		block = strings.Trim(block, "\n")
		if strings.TrimSpace(block) == "" {
			continue
		}
		lines := strings.Split(block, "\n")
		for i := range lines {
			lines[i] = html.EscapeString(lines[i])
		}
		b.WriteString("<p>")
		b.WriteString(strings.Join(lines, "<br/>"))
		b.WriteString("</p>")
	}
	return b.String()
}
