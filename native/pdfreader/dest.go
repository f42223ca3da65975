package pdfreader

import (
	"github.com/ledongthuc/pdf"

	"github.com/wudi/pdfengine/coords"
	"github.com/wudi/pdfengine/native"
)

const maxScriptSize = 1 << 20

// destFromValue resolves a /Dest entry: an explicit array, a destination
// dictionary or a name to look up.
func (d *Document) destFromValue(v pdf.Value) native.Dest {
	switch v.Kind() {
	case pdf.Array:
		return d.explicitDest(v)
	case pdf.Dict:
		if s := v.Key("S"); s.Kind() == pdf.Name {
			return d.destFromAction(v)
		}
		return d.explicitDest(v.Key("D"))
	case pdf.Name, pdf.String:
		name := v.Name()
		if v.Kind() == pdf.String {
			name = v.Text()
		}
		root, err := d.root()
		if err != nil {
			return native.Dest{Kind: native.DestNamed, Value: name}
		}
		target := d.lookupNamedDest(root, name)
		if target.Kind() == pdf.Dict {
			target = target.Key("D")
		}
		if target.Kind() == pdf.Array {
			return d.explicitDest(target)
		}
		return native.Dest{Kind: native.DestNamed, Value: name}
	}
	return native.Dest{}
}

func (d *Document) explicitDest(arr pdf.Value) native.Dest {
	if arr.Kind() != pdf.Array || arr.Len() == 0 {
		return native.Dest{}
	}
	dest := native.Dest{Kind: native.DestGoTo}
	switch target := arr.Index(0); target.Kind() {
	case pdf.Dict:
		dest.Page = d.pageNumber(target)
	case pdf.Integer:
		dest.Page = int(target.Int64()) + 1
	}
	if dest.Page == 0 {
		return native.Dest{}
	}

	r, _ := d.reader()
	box, rot := pageGeometry(r.Page(dest.Page).V)
	m := coords.PageMatrix(box, rot)
	arg := func(i int, def float64) float64 {
		if v := arr.Index(i); isNumber(v) {
			return number(v)
		}
		return def
	}
	point := func(x, y float64) coords.Rect {
		p := m.Transform(coords.Point{X: x, Y: y})
		return coords.Rect{X: p.X, Y: p.Y}
	}

	switch arr.Index(1).Name() {
	case "XYZ":
		dest.Rect = point(arg(2, box.X0), arg(3, box.Y1))
		dest.Zoom = arg(4, 0)
	case "FitH", "FitBH":
		dest.Rect = point(box.X0, arg(2, box.Y1))
	case "FitV", "FitBV":
		dest.Rect = point(arg(2, box.X0), box.Y1)
	case "FitR":
		dest.Rect = m.TransformRect(coords.FromNative(coords.NativeRect{
			X0: arg(2, box.X0), Y0: arg(3, box.Y0),
			X1: arg(4, box.X1), Y1: arg(5, box.Y1),
		}))
	}
	return dest
}

func (d *Document) destFromAction(a pdf.Value) native.Dest {
	switch a.Key("S").Name() {
	case "GoTo":
		return d.destFromValue(a.Key("D"))
	case "GoToR":
		dest := native.Dest{Kind: native.DestGoToRemote, Value: fileSpecName(a.Key("F"))}
		if target := a.Key("D"); target.Kind() == pdf.Array && target.Index(0).Kind() == pdf.Integer {
			dest.Page = int(target.Index(0).Int64()) + 1
		}
		return dest
	case "URI":
		return native.Dest{Kind: native.DestURI, Value: a.Key("URI").RawString()}
	case "Launch":
		spec := a.Key("F")
		if spec.IsNull() {
			spec = a.Key("Win").Key("F")
		}
		return native.Dest{Kind: native.DestLaunch, Value: fileSpecName(spec)}
	case "Named":
		return native.Dest{Kind: native.DestNamedAction, Value: a.Key("N").Name()}
	case "JavaScript":
		js := a.Key("JS")
		script := js.Text()
		if js.Kind() == pdf.Stream {
			if b, err := d.ctx.readStream(js, maxScriptSize); err == nil {
				script = string(b)
			}
		}
		return native.Dest{Kind: native.DestJavaScript, Value: script}
	case "GoToE":
		return native.Dest{Kind: native.DestEmbedded, Value: a.Key("T").Key("N").Text()}
	}
	return native.Dest{}
}
