package pdfreader

import (
	"github.com/ledongthuc/pdf"

	"github.com/wudi/pdfengine/coords"
	"github.com/wudi/pdfengine/native"
)

// imageScanner walks content streams tracking the CTM and records every
// image XObject drawn, descending into form XObjects.
type imageScanner struct {
	pageCTM  coords.Matrix
	maxDepth int
	max      int
	found    []native.ImagePlacement
	visiting map[string]bool
}

func (s *imageScanner) scan(contents, resources pdf.Value, base coords.Matrix, depth int) {
	if depth > s.maxDepth || len(s.found) >= s.max {
		return
	}
	ctm := base
	var stack []coords.Matrix
	op := func(stk *pdf.Stack, op string) {
		n := stk.Len()
		args := make([]pdf.Value, n)
		for i := n - 1; i >= 0; i-- {
			args[i] = stk.Pop()
		}
		switch op {
		case "q":
			stack = append(stack, ctm)
		case "Q":
			if k := len(stack); k > 0 {
				ctm, stack = stack[k-1], stack[:k-1]
			}
		case "cm":
			if len(args) == 6 {
				var m coords.Matrix
				for i := range m {
					m[i] = number(args[i])
				}
				ctm = m.Multiply(ctm)
			}
		case "Do":
			if len(args) == 1 && args[0].Kind() == pdf.Name {
				s.draw(args[0].Name(), resources, ctm, depth)
			}
		}
	}
	if contents.Kind() == pdf.Array {
		for i := 0; i < contents.Len(); i++ {
			pdf.Interpret(contents.Index(i), op)
		}
		return
	}
	if contents.Kind() == pdf.Stream {
		pdf.Interpret(contents, op)
	}
}

func (s *imageScanner) draw(name string, resources pdf.Value, ctm coords.Matrix, depth int) {
	if len(s.found) >= s.max {
		return
	}
	xobj := resources.Key("XObject").Key(name)
	switch xobj.Key("Subtype").Name() {
	case "Image":
		full := ctm.Multiply(s.pageCTM)
		s.found = append(s.found, native.ImagePlacement{
			Rect:      full.TransformRect(coords.Rect{Dx: 1, Dy: 1}),
			Transform: full,
			Name:      name,
			Width:     int(number(xobj.Key("Width"))),
			Height:    int(number(xobj.Key("Height"))),
		})
	case "Form":
		key := xobj.String()
		if s.visiting == nil {
			s.visiting = make(map[string]bool)
		}
		if s.visiting[key] {
			return
		}
		s.visiting[key] = true
		defer delete(s.visiting, key)

		m, _ := matrixValue(xobj.Key("Matrix"))
		inner := xobj.Key("Resources")
		if inner.IsNull() {
			inner = resources
		}
		s.scan(xobj, inner, m.Multiply(ctm), depth+1)
	}
}
