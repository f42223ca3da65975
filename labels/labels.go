// Package labels maps page numbers to custom page labels and back.
package labels

import (
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/wudi/pdfengine/native"
)

// Table is immutable once built and safe for concurrent reads.
type Table struct {
	labels []string
	pages  map[string]int
}

// Build expands ranges over pageCount pages. It returns nil when the
// document defines no labels. Duplicate labels get a " (n)" suffix so the
// reverse lookup stays unambiguous.
func Build(ranges []native.LabelRange, pageCount int) *Table {
	if len(ranges) == 0 || pageCount <= 0 {
		return nil
	}
	t := &Table{labels: make([]string, pageCount), pages: make(map[string]int, pageCount)}
	for i := 1; i <= pageCount; i++ {
		t.labels[i-1] = strconv.Itoa(i)
	}
	for i, r := range ranges {
		if r.StartPage < 1 || r.StartPage > pageCount {
			continue
		}
		end := pageCount
		if i+1 < len(ranges) && ranges[i+1].StartPage-1 < end {
			end = ranges[i+1].StartPage - 1
		}
		for p := r.StartPage; p <= end; p++ {
			t.labels[p-1] = r.Prefix + Format(r.Style, r.First+p-r.StartPage)
		}
	}

	original := make(map[string]bool, pageCount)
	for _, l := range t.labels {
		original[norm.NFC.String(l)] = true
	}
	// next holds the last suffix handed out per base label.
	next := make(map[string]int)
	for i, l := range t.labels {
		base := norm.NFC.String(l)
		key := base
		if _, taken := t.pages[key]; taken {
			n := max(next[base], 1)
			for {
				n++
				key = norm.NFC.String(l + " (" + strconv.Itoa(n) + ")")
				if _, taken := t.pages[key]; !taken && !original[key] {
					break
				}
			}
			next[base] = n
			t.labels[i] = l + " (" + strconv.Itoa(n) + ")"
		}
		t.pages[key] = i + 1
	}
	return t
}

// Label returns the label of a 1-based page.
func (t *Table) Label(pageNo int) (string, bool) {
	if t == nil || pageNo < 1 || pageNo > len(t.labels) {
		return "", false
	}
	return t.labels[pageNo-1], true
}

// Page returns the page carrying label, or -1.
func (t *Table) Page(label string) int {
	if t == nil {
		return -1
	}
	if p, ok := t.pages[norm.NFC.String(strings.TrimSpace(label))]; ok {
		return p
	}
	return -1
}

func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.labels)
}

// Roman and alphabetic labels fall back to decimal past these values so a
// single label stays short.
const (
	maxRoman = 4999
	maxAlpha = 26 * 16
)

// Format renders n in a page label style.
func Format(style native.LabelStyle, n int) string {
	switch style {
	case native.LabelDecimal:
		return strconv.Itoa(n)
	case native.LabelUpperRoman, native.LabelLowerRoman:
		if n > maxRoman {
			return strconv.Itoa(n)
		}
		if style == native.LabelLowerRoman {
			return strings.ToLower(roman(n))
		}
		return roman(n)
	case native.LabelUpperAlpha, native.LabelLowerAlpha:
		if n > maxAlpha {
			return strconv.Itoa(n)
		}
		if style == native.LabelLowerAlpha {
			return alpha(n, 'a')
		}
		return alpha(n, 'A')
	}
	return ""
}

func roman(n int) string {
	if n <= 0 {
		return strconv.Itoa(n)
	}
	values := []int{1000, 900, 500, 400, 100, 90, 50, 40, 10, 9, 5, 4, 1}
	digits := []string{"M", "CM", "D", "CD", "C", "XC", "L", "XL", "X", "IX", "V", "IV", "I"}
	var sb strings.Builder
	for i, v := range values {
		for n >= v {
			sb.WriteString(digits[i])
			n -= v
		}
	}
	return sb.String()
}

// alpha follows the PDF scheme: a..z, aa..zz, aaa..zzz.
func alpha(n int, base byte) string {
	if n <= 0 {
		return strconv.Itoa(n)
	}
	letter := base + byte((n-1)%26)
	return strings.Repeat(string(letter), (n-1)/26+1)
}
