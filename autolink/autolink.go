// Package autolink finds bare URLs and e-mail addresses in page text.
package autolink

import (
	"net/mail"
	"net/url"
	"strings"
	"unicode/utf8"

	"golang.org/x/net/idna"
	"golang.org/x/net/publicsuffix"

	"github.com/wudi/pdfengine/coords"
	"github.com/wudi/pdfengine/native"
)

// Match is a detected link and the part of the run it covers.
type Match struct {
	URL  string
	Text string
	Rect coords.Rect
}

const (
	leadingTrim  = `([<{"'`
	trailingTrim = `.,;:!?)]}>"'`
)

var schemes = []string{"http://", "https://", "ftp://", "mailto:"}

// Scan returns matches in run order. Runs overlapping a rect in skip (the
// page's real links) are ignored; max caps the result when positive.
func Scan(runs []native.TextRun, skip []coords.Rect, max int) []Match {
	var out []Match
	for _, run := range runs {
		if max > 0 && len(out) >= max {
			break
		}
		if overlapsAny(run.Rect, skip) {
			continue
		}
		text := run.Text
		start := len(text) - len(strings.TrimLeft(text, leadingTrim))
		end := len(strings.TrimRight(text, trailingTrim))
		if start >= end {
			continue
		}
		word := text[start:end]
		target, ok := Detect(word)
		if !ok {
			continue
		}
		out = append(out, Match{URL: target, Text: word, Rect: subRect(run, start, end)})
	}
	return out
}

// Detect classifies a single word and returns its link target.
func Detect(word string) (string, bool) {
	lower := strings.ToLower(word)
	for _, s := range schemes {
		if strings.HasPrefix(lower, s) && len(word) > len(s) {
			if s == "mailto:" {
				return word, validEmail(word[len(s):])
			}
			u, err := url.Parse(word)
			if err != nil || !validHost(u.Hostname()) {
				return "", false
			}
			return word, true
		}
	}
	if strings.HasPrefix(lower, "www.") {
		u, err := url.Parse("http://" + word)
		if err != nil || !validHost(u.Hostname()) {
			return "", false
		}
		return "http://" + word, true
	}
	if strings.Contains(word, "@") && validEmail(word) {
		return "mailto:" + word, true
	}
	return "", false
}

func validEmail(s string) bool {
	addr, err := mail.ParseAddress(s)
	if err != nil || addr.Address != s {
		return false
	}
	at := strings.LastIndexByte(s, '@')
	return validHost(s[at+1:])
}

// validHost accepts hosts with a public suffix under ICANN or a private
// registry, after IDNA conversion.
func validHost(host string) bool {
	if host == "" || !strings.Contains(host, ".") {
		return false
	}
	ascii, err := idna.Lookup.ToASCII(host)
	if err != nil {
		return false
	}
	suffix, icann := publicsuffix.PublicSuffix(ascii)
	if !icann && !strings.Contains(suffix, ".") {
		return false
	}
	_, err = publicsuffix.EffectiveTLDPlusOne(ascii)
	return err == nil
}

func overlapsAny(r coords.Rect, rects []coords.Rect) bool {
	for _, o := range rects {
		if !r.Intersect(o).IsEmpty() {
			return true
		}
	}
	return false
}

// subRect estimates the box of text[start:end] assuming evenly wide glyphs.
func subRect(run native.TextRun, start, end int) coords.Rect {
	total := utf8.RuneCountInString(run.Text)
	if total == 0 {
		return run.Rect
	}
	before := utf8.RuneCountInString(run.Text[:start])
	span := utf8.RuneCountInString(run.Text[start:end])
	r := run.Rect
	w := r.Dx / float64(total)
	return coords.Rect{X: r.X + w*float64(before), Y: r.Y, Dx: w * float64(span), Dy: r.Dy}
}
