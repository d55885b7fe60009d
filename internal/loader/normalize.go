package loader

import (
	"strings"

	"github.com/brandon/emlfs/pkg/types"
)

// rawAttachment is an attachment as found in a container, before naming rules.
type rawAttachment struct {
	name    string
	content []byte
}

// normalize applies naming rules in source order: unnamed entries and entries
// whose name is not a single path element are dropped, and for repeated names
// the first occurrence wins.
func normalize(raw []rawAttachment) ([]types.Attachment, []*types.AttachmentNamingViolation) {
	attachments := make([]types.Attachment, 0, len(raw))
	var violations []*types.AttachmentNamingViolation
	seen := make(map[string]struct{}, len(raw))

	for i, r := range raw {
		name := strings.TrimSpace(r.name)
		reason := ""
		switch {
		case name == "":
			reason = types.ReasonMissingName
		case name == "." || name == ".." || strings.Contains(name, "/"):
			reason = types.ReasonInvalidName
		default:
			if _, dup := seen[name]; dup {
				reason = types.ReasonDuplicateName
			}
		}
		if reason != "" {
			violations = append(violations, &types.AttachmentNamingViolation{Index: i, Name: r.name, Reason: reason})
			continue
		}

		seen[name] = struct{}{}
		attachments = append(attachments, types.Attachment{
			Name:     name,
			ByteSize: int64(len(r.content)),
			Content:  r.content,
		})
	}

	return attachments, violations
}

// displayAddress formats a mailbox as "name [address]", or the address alone
// when there is no name.
func displayAddress(name, address string) string {
	name = strings.TrimSpace(name)
	address = strings.TrimSpace(address)
	switch {
	case name == "":
		return address
	case address == "":
		return name
	default:
		return name + " [" + address + "]"
	}
}
