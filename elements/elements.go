// Package elements holds the page element and destination values handed to
// engine callers.
package elements

import (
	"github.com/wudi/pdfengine/coords"
)

type Kind int

const (
	KindLink Kind = iota
	KindAutoLink
	KindComment
	KindImage
)

func (k Kind) String() string {
	switch k {
	case KindLink:
		return "link"
	case KindAutoLink:
		return "autolink"
	case KindComment:
		return "comment"
	case KindImage:
		return "image"
	}
	return "unknown"
}

// Element is a selectable region on a page. Only the fields belonging to
// its Kind are set; use the As accessors instead of reading them directly.
type Element struct {
	Kind   Kind
	PageNo int
	Rect   coords.Rect

	dest    *Destination
	comment Comment
	image   int
}

// Comment is the annotation-derived payload of a KindComment element.
type Comment struct {
	Subtype  string
	Contents string
	Author   string
	Modified string
}

func NewLink(pageNo int, rect coords.Rect, dest *Destination) *Element {
	return &Element{Kind: KindLink, PageNo: pageNo, Rect: rect, dest: dest}
}

func NewAutoLink(pageNo int, rect coords.Rect, url string) *Element {
	return &Element{Kind: KindAutoLink, PageNo: pageNo, Rect: rect, dest: &Destination{Kind: DestLaunchURL, Value: url}}
}

func NewComment(pageNo int, rect coords.Rect, c Comment, dest *Destination) *Element {
	return &Element{Kind: KindComment, PageNo: pageNo, Rect: rect, comment: c, dest: dest}
}

// NewImage creates an element for the index-th image of a page.
func NewImage(pageNo int, rect coords.Rect, index int) *Element {
	return &Element{Kind: KindImage, PageNo: pageNo, Rect: rect, image: index}
}

// AsDestination returns the element target. Comments carry one only when
// they point at an embedded file.
func (e *Element) AsDestination() (*Destination, bool) {
	return e.dest, e.dest != nil
}

func (e *Element) AsComment() (Comment, bool) {
	return e.comment, e.Kind == KindComment
}

// AsImage returns the image index on the page.
func (e *Element) AsImage() (int, bool) {
	return e.image, e.Kind == KindImage
}

// Label is the text a viewer shows for the element, such as a tooltip.
func (e *Element) Label() string {
	switch e.Kind {
	case KindComment:
		return e.comment.Contents
	case KindLink, KindAutoLink:
		if e.dest != nil {
			return e.dest.Value
		}
	}
	return ""
}

// At returns the first element containing pt.
func At(els []*Element, pt coords.Point) *Element {
	for _, el := range els {
		if el.Rect.Contains(pt) {
			return el
		}
	}
	return nil
}
