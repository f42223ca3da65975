// Package fonts describes the fonts a document uses. Embedded TrueType and
// OpenType programs are inspected for their PostScript name, glyph count
// and layout tables.
package fonts

import (
	"bytes"
	"fmt"
	"sort"
	"strings"

	"github.com/go-text/typesetting/font/opentype"
	"golang.org/x/image/font/sfnt"

	"github.com/wudi/pdfengine/native"
)

// Info describes one font resource.
type Info struct {
	Name     string
	Subtype  string
	Encoding string
	Embedded bool
	// Subset is set for names carrying a six letter subset tag.
	Subset bool

	// Program details, filled only for parsed embedded programs.
	PostScriptName string
	Family         string
	Glyphs         int
	UnitsPerEm     int
	Outlines       string
	Layout         bool

	// Pages lists the 1-based pages referencing the font.
	Pages []int
}

var (
	tagCFF  = opentype.NewTag('C', 'F', 'F', ' ')
	tagCFF2 = opentype.NewTag('C', 'F', 'F', '2')
	tagGlyf = opentype.NewTag('g', 'l', 'y', 'f')
	tagGSUB = opentype.NewTag('G', 'S', 'U', 'B')
	tagGPOS = opentype.NewTag('G', 'P', 'O', 'S')
)

// Describe builds the Info for ref. A program that fails to parse leaves
// the program fields empty.
func Describe(ref native.FontRef) Info {
	info := Info{
		Name:     ref.Name,
		Subtype:  ref.Subtype,
		Encoding: ref.Encoding,
		Embedded: ref.Embedded,
		Subset:   isSubsetName(ref.Name),
	}
	if len(ref.Program) == 0 {
		return info
	}
	if f, err := sfnt.Parse(ref.Program); err == nil {
		var buf sfnt.Buffer
		info.PostScriptName, _ = f.Name(&buf, sfnt.NameIDPostScript)
		info.Family, _ = f.Name(&buf, sfnt.NameIDFamily)
		info.Glyphs = f.NumGlyphs()
		info.UnitsPerEm = int(f.UnitsPerEm())
	}
	if ld, err := opentype.NewLoader(bytes.NewReader(ref.Program)); err == nil {
		switch {
		case ld.HasTable(tagCFF), ld.HasTable(tagCFF2):
			info.Outlines = "CFF"
		case ld.HasTable(tagGlyf):
			info.Outlines = "TrueType"
		}
		info.Layout = ld.HasTable(tagGSUB) || ld.HasTable(tagGPOS)
	}
	return info
}

func isSubsetName(name string) bool {
	if len(name) < 8 || name[6] != '+' {
		return false
	}
	for i := 0; i < 6; i++ {
		if name[i] < 'A' || name[i] > 'Z' {
			return false
		}
	}
	return true
}

// List is a document font list ordered by name.
type List []Info

// Collect merges the per-page font references. pages[i] holds the fonts of
// page i+1.
func Collect(pages [][]native.FontRef) List {
	byName := make(map[string]*Info)
	for i, refs := range pages {
		for _, ref := range refs {
			key := ref.Name + "\x00" + ref.Subtype
			info, ok := byName[key]
			if !ok {
				d := Describe(ref)
				info = &d
				byName[key] = info
			}
			if n := len(info.Pages); n == 0 || info.Pages[n-1] != i+1 {
				info.Pages = append(info.Pages, i+1)
			}
		}
	}
	out := make(List, 0, len(byName))
	for _, info := range byName {
		out = append(out, *info)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].Subtype < out[j].Subtype
	})
	return out
}

// String renders one font per line as "Name (Subtype; Encoding; embedded)".
func (l List) String() string {
	var sb strings.Builder
	for i, info := range l {
		if i > 0 {
			sb.WriteByte('\n')
		}
		sb.WriteString(info.Line())
	}
	return sb.String()
}

func (info Info) Line() string {
	name := info.Name
	if name == "" {
		name = "[unnamed]"
	}
	var attrs []string
	if info.Subtype != "" {
		attrs = append(attrs, info.Subtype)
	}
	if info.Encoding != "" {
		attrs = append(attrs, info.Encoding)
	}
	switch {
	case info.Subset:
		attrs = append(attrs, "embedded subset")
	case info.Embedded:
		attrs = append(attrs, "embedded")
	}
	if len(attrs) == 0 {
		return name
	}
	return fmt.Sprintf("%s (%s)", name, strings.Join(attrs, "; "))
}
