package labels

import (
	"testing"

	"github.com/wudi/pdfengine/native"
)

func TestBuildRanges(t *testing.T) {
	table := Build([]native.LabelRange{
		{StartPage: 1, Style: native.LabelLowerRoman, First: 1},
		{StartPage: 4, Style: native.LabelDecimal, First: 1},
		{StartPage: 7, Style: native.LabelUpperAlpha, Prefix: "App-", First: 1},
	}, 8)
	want := []string{"i", "ii", "iii", "1", "2", "3", "App-A", "App-B"}
	for i, w := range want {
		got, ok := table.Label(i + 1)
		if !ok || got != w {
			t.Fatalf("Label(%d) = %q, %v; want %q", i+1, got, ok, w)
		}
		if p := table.Page(w); p != i+1 {
			t.Fatalf("Page(%q) = %d, want %d", w, p, i+1)
		}
	}
	if _, ok := table.Label(9); ok {
		t.Fatalf("Label(9) should be out of range")
	}
	if table.Page("missing") != -1 {
		t.Fatalf("unknown label should map to -1")
	}
}

func TestDuplicateLabelsAreSuffixed(t *testing.T) {
	table := Build([]native.LabelRange{
		{StartPage: 1, Style: native.LabelDecimal, First: 1},
		{StartPage: 3, Style: native.LabelDecimal, First: 1},
	}, 4)
	if l, _ := table.Label(3); l != "1 (2)" {
		t.Fatalf("duplicate label %q", l)
	}
	if table.Page("1") != 1 || table.Page("1 (2)") != 3 {
		t.Fatalf("reverse lookup of duplicates broken")
	}

	// The suffixed form of a duplicate is itself a label of a later page.
	taken := Build([]native.LabelRange{
		{StartPage: 1, Prefix: "A"},
		{StartPage: 2, Prefix: "A"},
		{StartPage: 3, Prefix: "A (2)"},
		{StartPage: 4, Prefix: "A"},
	}, 4)
	want := []string{"A", "A (3)", "A (2)", "A (4)"}
	for i, w := range want {
		got, _ := taken.Label(i + 1)
		if got != w {
			t.Fatalf("Label(%d) = %q, want %q", i+1, got, w)
		}
		if p := taken.Page(got); p != i+1 {
			t.Fatalf("Page(%q) = %d, want %d", got, p, i+1)
		}
	}
}

func TestHugeStartValueStaysShort(t *testing.T) {
	table := Build([]native.LabelRange{
		{StartPage: 1, Style: native.LabelUpperAlpha, First: 26 * 20000000},
		{StartPage: 2, Style: native.LabelUpperRoman, First: 2000000000},
		{StartPage: 3, Style: native.LabelLowerRoman, First: 4999},
	}, 3)
	for i := 1; i <= 3; i++ {
		l, _ := table.Label(i)
		if len(l) > 24 {
			t.Fatalf("label of page %d has %d bytes", i, len(l))
		}
		if table.Page(l) != i {
			t.Fatalf("Page(%q) = %d", l, table.Page(l))
		}
	}
	if l, _ := table.Label(1); l != "520000000" {
		t.Fatalf("alpha fallback %q", l)
	}
	if l, _ := table.Label(2); l != "2000000000" {
		t.Fatalf("roman fallback %q", l)
	}
}

func TestLabelsWithoutStyle(t *testing.T) {
	table := Build([]native.LabelRange{{StartPage: 1, Prefix: "Cover", First: 1}, {StartPage: 2, Style: native.LabelDecimal, First: 1}}, 3)
	if l, _ := table.Label(1); l != "Cover" {
		t.Fatalf("prefix-only label %q", l)
	}
}

func TestNormalizedLookup(t *testing.T) {
	// "é" precomposed in the document, decomposed in the query.
	table := Build([]native.LabelRange{{StartPage: 1, Prefix: "Pr\u00e9face ", Style: native.LabelDecimal, First: 1}}, 1)
	if p := table.Page("Pre\u0301face 1"); p != 1 {
		t.Fatalf("NFC lookup failed: %d", p)
	}
}

func TestFormat(t *testing.T) {
	cases := []struct {
		style native.LabelStyle
		n     int
		want  string
	}{
		{native.LabelUpperRoman, 1994, "MCMXCIV"},
		{native.LabelLowerAlpha, 1, "a"},
		{native.LabelLowerAlpha, 27, "aa"},
		{native.LabelUpperAlpha, 53, "AAA"},
		{native.LabelUpperAlpha, 26*16 + 1, "417"},
		{native.LabelUpperRoman, 5000, "5000"},
		{native.LabelNone, 4, ""},
	}
	for _, c := range cases {
		if got := Format(c.style, c.n); got != c.want {
			t.Fatalf("Format(%q, %d) = %q, want %q", c.style, c.n, got, c.want)
		}
	}
}

func TestNilTable(t *testing.T) {
	if Build(nil, 3) != nil {
		t.Fatalf("no ranges should give a nil table")
	}
	var table *Table
	if _, ok := table.Label(1); ok || table.Page("1") != -1 || table.Len() != 0 {
		t.Fatalf("nil table should be empty")
	}
}
