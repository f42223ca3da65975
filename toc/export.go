package toc

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
)

var mdEscaper = strings.NewReplacer(
	`\`, `\\`, "[", `\[`, "]", `\]`, "*", `\*`, "_", `\_`, "`", "\\`", "<", `\<`, "#", `\#`,
)

// Markdown renders the tree as a nested list. Page targets become
// "#page=N" links.
func (t *Tree) Markdown() string {
	var sb strings.Builder
	t.Walk(func(it *Item, depth int) bool {
		sb.WriteString(strings.Repeat("  ", depth))
		sb.WriteString("- ")
		title := mdEscaper.Replace(strings.TrimSpace(it.Title))
		if title == "" {
			title = "(untitled)"
		}
		switch {
		case it.IsAttachment:
			fmt.Fprintf(&sb, "%s (attachment)", title)
		case it.PageNo > 0:
			fmt.Fprintf(&sb, "[%s](#page=%d)", title, it.PageNo)
		default:
			sb.WriteString(title)
		}
		sb.WriteByte('\n')
		return true
	})
	return sb.String()
}

// HTML renders Markdown through goldmark.
func (t *Tree) HTML() (string, error) {
	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(t.Markdown()), &buf); err != nil {
		return "", fmt.Errorf("toc: render html: %w", err)
	}
	return buf.String(), nil
}
