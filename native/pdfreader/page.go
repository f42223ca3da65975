package pdfreader

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/wudi/pdfengine/coords"
	"github.com/wudi/pdfengine/native"
)

type Page struct {
	doc    *Document
	no     int
	pg     pdf.Page
	rotate int
	ctm    coords.Matrix
	bounds coords.Rect

	links  []*native.Link
	loaded bool
	closed bool
}

func (p *Page) Number() int         { return p.no }
func (p *Page) Bounds() coords.Rect { return p.bounds }
func (p *Page) Rotation() int       { return p.rotate }
func (p *Page) CTM() coords.Matrix  { return p.ctm }

var errPageClosed = errors.New("pdfreader: page closed")

func (p *Page) annots() pdf.Value { return p.pg.V.Key("Annots") }

// Links re-reads the link annotations. Returned links are owned by the page
// and reused until it is closed.
func (p *Page) Links() ([]*native.Link, error) {
	if p.closed {
		return nil, errPageClosed
	}
	if p.loaded {
		return p.links, nil
	}
	var links []*native.Link
	err := guard("links", func() error {
		annots := p.annots()
		for i := 0; i < annots.Len() && len(links) < p.doc.ctx.limits.MaxLinksPerPage; i++ {
			a := annots.Index(i)
			if a.Key("Subtype").Name() != "Link" {
				continue
			}
			r, ok := rectValue(a.Key("Rect"))
			if !ok {
				continue
			}
			link := &native.Link{Rect: p.ctm.TransformRect(coords.FromNative(r))}
			if dest := a.Key("Dest"); !dest.IsNull() {
				link.Dest = p.doc.destFromValue(dest)
			} else {
				link.Dest = p.doc.destFromAction(a.Key("A"))
			}
			links = append(links, link)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	p.links, p.loaded = links, true
	return links, nil
}

func (p *Page) Annotations() ([]*native.Annotation, error) {
	if p.closed {
		return nil, errPageClosed
	}
	var out []*native.Annotation
	err := guard("annotations", func() error {
		annots := p.annots()
		for i := 0; i < annots.Len() && len(out) < p.doc.ctx.limits.MaxCommentsPerPage; i++ {
			a := annots.Index(i)
			if a.Kind() != pdf.Dict {
				continue
			}
			r, _ := rectValue(a.Key("Rect"))
			an := &native.Annotation{
				Subtype:  a.Key("Subtype").Name(),
				Rect:     p.ctm.TransformRect(coords.FromNative(r)),
				Contents: a.Key("Contents").Text(),
				Author:   a.Key("T").Text(),
				Modified: a.Key("M").Text(),
				Flags:    int(number(a.Key("F"))),
				Color:    numbers(a.Key("C")),
			}
			if an.Subtype == "FileAttachment" {
				spec := a.Key("FS")
				an.FileName = fileSpecName(spec)
				if ef := spec.Key("EF").Key("F"); ef.Kind() == pdf.Stream {
					data, err := p.doc.ctx.readStream(ef, p.doc.ctx.limits.MaxDocumentSize)
					if err != nil {
						return fmt.Errorf("attachment %q: %w", an.FileName, err)
					}
					an.FileData = data
				}
			}
			out = append(out, an)
		}
		return nil
	})
	return out, err
}

func (p *Page) Text() (s string, err error) {
	if p.closed {
		return "", errPageClosed
	}
	err = guard("text", func() error {
		var err error
		s, err = p.pg.GetPlainText(nil)
		return err
	})
	return s, err
}

// TextRuns groups the page glyphs into words in content order.
func (p *Page) TextRuns() ([]native.TextRun, error) {
	if p.closed {
		return nil, errPageClosed
	}
	key := runKey{doc: p.doc.id, page: p.no}
	if runs, ok := p.doc.ctx.cachedRuns(key); ok {
		return runs, nil
	}
	var runs []native.TextRun
	err := guard("text runs", func() error {
		runs = buildRuns(p.pg.Content().Text, p.ctm)
		return nil
	})
	if err != nil {
		return nil, err
	}
	p.doc.ctx.storeRuns(key, runs)
	return runs, nil
}

func buildRuns(glyphs []pdf.Text, ctm coords.Matrix) []native.TextRun {
	var (
		runs    []native.TextRun
		word    strings.Builder
		box     coords.Rect
		newLine = true
		lastY   float64
		lastEnd float64
		have    bool
	)
	flush := func() {
		if word.Len() > 0 {
			runs = append(runs, native.TextRun{Text: word.String(), Rect: ctm.TransformRect(box), NewLine: newLine})
			newLine = false
		}
		word.Reset()
		box = coords.Rect{}
	}
	for _, g := range glyphs {
		size := g.FontSize
		if size <= 0 {
			size = 1
		}
		w := g.W
		if w <= 0 {
			w = size / 2
		}
		if have && absf(g.Y-lastY) > size/2 {
			flush()
			newLine = true
		} else if have && g.X-lastEnd > size*0.3 {
			flush()
		}
		have, lastY, lastEnd = true, g.Y, g.X+w
		if strings.TrimSpace(g.S) == "" {
			flush()
			continue
		}
		glyph := coords.Rect{X: g.X, Y: g.Y - size*0.2, Dx: w, Dy: size}
		if word.Len() == 0 {
			box = glyph
		} else {
			box = box.Union(glyph)
		}
		word.WriteString(g.S)
	}
	flush()
	return runs
}

func absf(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

func (p *Page) Images() ([]native.ImagePlacement, error) {
	if p.closed {
		return nil, errPageClosed
	}
	var out []native.ImagePlacement
	err := guard("images", func() error {
		s := imageScanner{
			pageCTM:  p.ctm,
			maxDepth: p.doc.ctx.limits.MaxXObjectDepth,
			max:      p.doc.ctx.limits.MaxImagesPerPage,
		}
		s.scan(p.pg.V.Key("Contents"), p.pg.Resources(), coords.Identity(), 0)
		out = s.found
		return nil
	})
	return out, err
}

func (p *Page) Fonts() ([]native.FontRef, error) {
	if p.closed {
		return nil, errPageClosed
	}
	var out []native.FontRef
	err := guard("fonts", func() error {
		fonts := p.pg.Resources().Key("Font")
		for _, name := range fonts.Keys() {
			ref, err := p.fontRef(fonts.Key(name))
			if err != nil {
				return err
			}
			out = append(out, ref)
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, err
}

func (p *Page) fontRef(font pdf.Value) (native.FontRef, error) {
	ref := native.FontRef{
		Name:    font.Key("BaseFont").Name(),
		Subtype: font.Key("Subtype").Name(),
	}
	switch enc := font.Key("Encoding"); enc.Kind() {
	case pdf.Name:
		ref.Encoding = enc.Name()
	case pdf.Dict:
		ref.Encoding = enc.Key("BaseEncoding").Name()
	}
	desc := font.Key("FontDescriptor")
	if ref.Subtype == "Type0" {
		desc = font.Key("DescendantFonts").Index(0).Key("FontDescriptor")
	}
	for _, key := range []string{"FontFile", "FontFile2", "FontFile3"} {
		file := desc.Key(key)
		if file.Kind() != pdf.Stream {
			continue
		}
		ref.Embedded = true
		if key == "FontFile2" || file.Key("Subtype").Name() == "OpenType" {
			prog, err := p.doc.ctx.fontProgram(file.String(), func() ([]byte, error) {
				return p.doc.ctx.readStream(file, p.doc.ctx.limits.MaxDocumentSize)
			})
			if err != nil {
				return ref, fmt.Errorf("font %s: %w", ref.Name, err)
			}
			ref.Program = prog
		}
		break
	}
	return ref, nil
}

func (p *Page) Close() error {
	p.closed = true
	p.links = nil
	return nil
}
