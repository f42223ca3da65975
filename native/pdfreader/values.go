package pdfreader

import (
	"github.com/ledongthuc/pdf"

	"github.com/wudi/pdfengine/coords"
)

const maxInheritDepth = 32

// inherited looks key up on a page and then its /Parent chain.
func inherited(page pdf.Value, key string) pdf.Value {
	for i := 0; i < maxInheritDepth && page.Kind() == pdf.Dict; i++ {
		if v := page.Key(key); !v.IsNull() {
			return v
		}
		page = page.Key("Parent")
	}
	return pdf.Value{}
}

func number(v pdf.Value) float64 {
	switch v.Kind() {
	case pdf.Integer:
		return float64(v.Int64())
	case pdf.Real:
		return v.Float64()
	}
	return 0
}

func isNumber(v pdf.Value) bool {
	k := v.Kind()
	return k == pdf.Integer || k == pdf.Real
}

func numbers(v pdf.Value) []float64 {
	if v.Kind() != pdf.Array {
		return nil
	}
	out := make([]float64, 0, v.Len())
	for i := 0; i < v.Len(); i++ {
		out = append(out, number(v.Index(i)))
	}
	return out
}

func rectValue(v pdf.Value) (coords.NativeRect, bool) {
	if v.Kind() != pdf.Array || v.Len() < 4 {
		return coords.NativeRect{}, false
	}
	return coords.NativeRect{
		X0: number(v.Index(0)), Y0: number(v.Index(1)),
		X1: number(v.Index(2)), Y1: number(v.Index(3)),
	}.Normalize(), true
}

func matrixValue(v pdf.Value) (coords.Matrix, bool) {
	if v.Kind() != pdf.Array || v.Len() != 6 {
		return coords.Identity(), false
	}
	var m coords.Matrix
	for i := range m {
		m[i] = number(v.Index(i))
	}
	return m, true
}

// walkNameTree visits name tree leaves in key order until fn returns false.
func walkNameTree(node pdf.Value, maxDepth int, fn func(key string, v pdf.Value) bool) bool {
	if node.Kind() != pdf.Dict || maxDepth <= 0 {
		return true
	}
	if names := node.Key("Names"); names.Kind() == pdf.Array {
		for i := 0; i+1 < names.Len(); i += 2 {
			if !fn(names.Index(i).Text(), names.Index(i+1)) {
				return false
			}
		}
	}
	kids := node.Key("Kids")
	for i := 0; i < kids.Len(); i++ {
		if !walkNameTree(kids.Index(i), maxDepth-1, fn) {
			return false
		}
	}
	return true
}

// walkNumberTree is walkNameTree for number trees.
func walkNumberTree(node pdf.Value, maxDepth int, fn func(key int, v pdf.Value) bool) bool {
	if node.Kind() != pdf.Dict || maxDepth <= 0 {
		return true
	}
	if nums := node.Key("Nums"); nums.Kind() == pdf.Array {
		for i := 0; i+1 < nums.Len(); i += 2 {
			if !fn(int(number(nums.Index(i))), nums.Index(i+1)) {
				return false
			}
		}
	}
	kids := node.Key("Kids")
	for i := 0; i < kids.Len(); i++ {
		if !walkNumberTree(kids.Index(i), maxDepth-1, fn) {
			return false
		}
	}
	return true
}

// fileSpecName returns the preferred file name of a file specification.
func fileSpecName(spec pdf.Value) string {
	switch spec.Kind() {
	case pdf.String:
		return spec.Text()
	case pdf.Dict:
		for _, k := range []string{"UF", "F", "Unix", "DOS", "Mac"} {
			if v := spec.Key(k); v.Kind() == pdf.String {
				return v.Text()
			}
		}
	}
	return ""
}
