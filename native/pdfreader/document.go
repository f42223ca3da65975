package pdfreader

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/ledongthuc/pdf"

	"github.com/wudi/pdfengine/coords"
	"github.com/wudi/pdfengine/native"
)

type Document struct {
	ctx    *Context
	data   []byte
	id     int64
	r      *pdf.Reader
	locked bool

	// page dict String() to page number, built on first destination lookup.
	pageIndex map[string]int
}

func (d *Document) NeedsPassword() bool { return d.locked }

func (d *Document) Authenticate(password string) bool {
	if !d.locked {
		return true
	}
	offered := false
	err := guard("authenticate", func() error {
		r, err := pdf.NewReaderEncrypted(bytes.NewReader(d.data), int64(len(d.data)), func() string {
			if offered {
				return ""
			}
			offered = true
			return password
		})
		if err != nil {
			return err
		}
		d.r = r
		return nil
	})
	if err != nil {
		return false
	}
	d.locked = false
	return true
}

func (d *Document) reader() (*pdf.Reader, error) {
	if d.locked || d.r == nil {
		return nil, native.ErrNeedsPassword
	}
	return d.r, nil
}

func (d *Document) root() (pdf.Value, error) {
	r, err := d.reader()
	if err != nil {
		return pdf.Value{}, err
	}
	return r.Trailer().Key("Root"), nil
}

func (d *Document) PageCount() (n int, err error) {
	r, err := d.reader()
	if err != nil {
		return 0, err
	}
	err = guard("page count", func() error {
		n = r.NumPage()
		return nil
	})
	return n, err
}

func (d *Document) LoadPage(pageNo int) (native.Page, error) {
	r, err := d.reader()
	if err != nil {
		return nil, err
	}
	var p *Page
	err = guard("load page", func() error {
		if pageNo < 1 || pageNo > r.NumPage() {
			return fmt.Errorf("page %d out of range", pageNo)
		}
		pg := r.Page(pageNo)
		if pg.V.IsNull() {
			return fmt.Errorf("page %d: missing page object", pageNo)
		}
		box, rot := pageGeometry(pg.V)
		p = &Page{
			doc:    d,
			no:     pageNo,
			pg:     pg,
			rotate: rot,
			ctm:    coords.PageMatrix(box, rot),
		}
		p.bounds = p.ctm.TransformRect(coords.FromNative(box))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

// pageGeometry returns the visible user-space box and normalized rotation.
func pageGeometry(page pdf.Value) (coords.NativeRect, int) {
	box, ok := rectValue(inherited(page, "MediaBox"))
	if !ok || box.IsEmpty() {
		box = coords.NativeRect{X1: 612, Y1: 792}
	}
	if crop, ok := rectValue(inherited(page, "CropBox")); ok {
		if clipped := box.Intersect(crop); !clipped.IsEmpty() {
			box = clipped
		}
	}
	rot := coords.NormalizeRotation(int(number(inherited(page, "Rotate"))))
	return box, rot
}

func (d *Document) pageNumber(page pdf.Value) int {
	r, err := d.reader()
	if err != nil || page.Kind() != pdf.Dict {
		return 0
	}
	if d.pageIndex == nil {
		d.pageIndex = make(map[string]int)
		for i := 1; i <= r.NumPage(); i++ {
			key := r.Page(i).V.String()
			if _, dup := d.pageIndex[key]; !dup {
				d.pageIndex[key] = i
			}
		}
	}
	return d.pageIndex[page.String()]
}

func (d *Document) Outline() (out *native.Outline, err error) {
	root, err := d.root()
	if err != nil {
		return nil, err
	}
	err = guard("outline", func() error {
		first := root.Key("Outlines").Key("First")
		if first.IsNull() {
			return nil
		}
		w := outlineWalker{doc: d, seen: make(map[string]bool)}
		out = w.walk(first, 0)
		return nil
	})
	return out, err
}

type outlineWalker struct {
	doc   *Document
	seen  map[string]bool
	count int
}

func (w *outlineWalker) walk(item pdf.Value, depth int) *native.Outline {
	limits := w.doc.ctx.limits
	var head, tail *native.Outline
	for ; item.Kind() == pdf.Dict; item = item.Key("Next") {
		key := item.String()
		if w.seen[key] || w.count >= limits.MaxOutlineItems {
			break
		}
		w.seen[key] = true
		w.count++

		flags := int(number(item.Key("F")))
		o := &native.Outline{
			Title:  item.Key("Title").Text(),
			Open:   number(item.Key("Count")) > 0,
			Italic: flags&1 != 0,
			Bold:   flags&2 != 0,
			Color:  numbers(item.Key("C")),
		}
		if dest := item.Key("Dest"); !dest.IsNull() {
			o.Dest = w.doc.destFromValue(dest)
		} else if act := item.Key("A"); !act.IsNull() {
			o.Dest = w.doc.destFromAction(act)
		}
		if depth+1 < limits.MaxOutlineDepth {
			if child := item.Key("First"); !child.IsNull() {
				o.Down = w.walk(child, depth+1)
			}
		}
		if head == nil {
			head = o
		} else {
			tail.Next = o
		}
		tail = o
	}
	return head
}

func (d *Document) Attachments() (out *native.Outline, err error) {
	root, err := d.root()
	if err != nil {
		return nil, err
	}
	err = guard("attachments", func() error {
		var tail *native.Outline
		walkNameTree(root.Key("Names").Key("EmbeddedFiles"), d.ctx.limits.MaxOutlineDepth, func(name string, spec pdf.Value) bool {
			o := &native.Outline{
				Title: fileSpecName(spec),
				Dest:  native.Dest{Kind: native.DestEmbedded, Value: name},
			}
			if o.Title == "" {
				o.Title = name
			}
			if out == nil {
				out = o
			} else {
				tail.Next = o
			}
			tail = o
			return true
		})
		return nil
	})
	return out, err
}

func (d *Document) EmbeddedFile(name string) (data []byte, err error) {
	root, err := d.root()
	if err != nil {
		return nil, err
	}
	err = guard("embedded file", func() error {
		var found pdf.Value
		walkNameTree(root.Key("Names").Key("EmbeddedFiles"), d.ctx.limits.MaxOutlineDepth, func(key string, spec pdf.Value) bool {
			if key == name {
				found = spec
				return false
			}
			return true
		})
		if found.IsNull() {
			return fmt.Errorf("embedded file %q not found", name)
		}
		data, err = d.ctx.readStream(found.Key("EF").Key("F"), d.ctx.limits.MaxDocumentSize)
		return err
	})
	return data, err
}

func (d *Document) PageLabels() (out []native.LabelRange, err error) {
	root, err := d.root()
	if err != nil {
		return nil, err
	}
	err = guard("page labels", func() error {
		walkNumberTree(root.Key("PageLabels"), d.ctx.limits.MaxOutlineDepth, func(start int, v pdf.Value) bool {
			first := 1
			if st := number(v.Key("St")); st > 1 {
				first = int(math.Min(st, float64(d.ctx.limits.MaxLabelNumber)))
			}
			out = append(out, native.LabelRange{
				StartPage: start + 1,
				Style:     native.LabelStyle(v.Key("S").Name()),
				Prefix:    v.Key("P").Text(),
				First:     first,
			})
			return len(out) < d.ctx.limits.MaxLabelRanges
		})
		return nil
	})
	sort.SliceStable(out, func(i, j int) bool { return out[i].StartPage < out[j].StartPage })
	return out, err
}

func (d *Document) ResolveNamedDest(name string) (dest *native.Dest, err error) {
	root, err := d.root()
	if err != nil {
		return nil, err
	}
	err = guard("named destination", func() error {
		v := d.lookupNamedDest(root, name)
		if v.IsNull() {
			return nil
		}
		resolved := d.destFromValue(v)
		if resolved.Kind == native.DestNamed {
			return nil
		}
		dest = &resolved
		return nil
	})
	return dest, err
}

func (d *Document) lookupNamedDest(root pdf.Value, name string) pdf.Value {
	if v := root.Key("Dests").Key(name); !v.IsNull() {
		return v
	}
	var found pdf.Value
	walkNameTree(root.Key("Names").Key("Dests"), d.ctx.limits.MaxOutlineDepth, func(key string, v pdf.Value) bool {
		if key == name {
			found = v
			return false
		}
		return true
	})
	return found
}

func (d *Document) Metadata(key string) (string, bool) {
	if key == "PdfVersion" {
		return headerVersion(d.data)
	}
	r, err := d.reader()
	if err != nil {
		return "", false
	}
	var s string
	_ = guard("metadata", func() error {
		if v := r.Trailer().Key("Info").Key(key); v.Kind() == pdf.String {
			s = v.Text()
		}
		return nil
	})
	return s, s != ""
}

func headerVersion(data []byte) (string, bool) {
	const magic = "%PDF-"
	i := bytes.Index(data[:min(len(data), 1024)], []byte(magic))
	if i < 0 {
		return "", false
	}
	rest := data[i+len(magic):]
	end := 0
	for end < len(rest) && end < 8 && (rest[end] == '.' || (rest[end] >= '0' && rest[end] <= '9')) {
		end++
	}
	if end == 0 {
		return "", false
	}
	return "PDF-" + string(rest[:end]), true
}

func (d *Document) Permissions() (int32, bool) {
	r, err := d.reader()
	if err != nil {
		return 0, true
	}
	var p int32 = -1
	encrypted := false
	_ = guard("permissions", func() error {
		enc := r.Trailer().Key("Encrypt")
		if enc.IsNull() {
			return nil
		}
		encrypted = true
		p = int32(enc.Key("P").Int64())
		return nil
	})
	return p, encrypted
}

func (d *Document) Close() error {
	if d.r == nil && !d.locked {
		return errors.New("pdfreader: document already closed")
	}
	d.ctx.dropRuns(d.id)
	d.r = nil
	d.locked = false
	d.pageIndex = nil
	return nil
}
