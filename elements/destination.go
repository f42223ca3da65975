package elements

import (
	"github.com/wudi/pdfengine/coords"
	"github.com/wudi/pdfengine/native"
)

type DestKind int

const (
	DestNone DestKind = iota
	DestScrollTo
	DestLaunchURL
	DestLaunchFile
	DestLaunchEmbedded
	DestJavaScript
	DestNextPage
	DestPrevPage
	DestFirstPage
	DestLastPage
	DestGoBack
	DestGoForward
	DestFind
	DestGoToPage
	DestPrint
	DestSaveAs
	DestFullScreen
)

var destNames = map[DestKind]string{
	DestNone:           "none",
	DestScrollTo:       "scroll-to",
	DestLaunchURL:      "launch-url",
	DestLaunchFile:     "launch-file",
	DestLaunchEmbedded: "launch-embedded",
	DestJavaScript:     "javascript",
	DestNextPage:       "next-page",
	DestPrevPage:       "prev-page",
	DestFirstPage:      "first-page",
	DestLastPage:       "last-page",
	DestGoBack:         "go-back",
	DestGoForward:      "go-forward",
	DestFind:           "find",
	DestGoToPage:       "goto-page",
	DestPrint:          "print",
	DestSaveAs:         "save-as",
	DestFullScreen:     "full-screen",
}

func (k DestKind) String() string {
	if s, ok := destNames[k]; ok {
		return s
	}
	return "unknown"
}

var namedActions = map[string]DestKind{
	"NextPage":   DestNextPage,
	"PrevPage":   DestPrevPage,
	"FirstPage":  DestFirstPage,
	"LastPage":   DestLastPage,
	"GoBack":     DestGoBack,
	"GoForward":  DestGoForward,
	"Find":       DestFind,
	"GoToPage":   DestGoToPage,
	"Print":      DestPrint,
	"SaveAs":     DestSaveAs,
	"FullScreen": DestFullScreen,
}

// NamedAction maps a viewer menu action name such as "NextPage" to its
// kind, DestNone when unknown.
func NamedAction(name string) DestKind { return namedActions[name] }

// Destination is where activating an element or TOC item leads.
type Destination struct {
	Kind DestKind
	// PageNo is 1-based, 0 when the destination has no page.
	PageNo int
	Rect   coords.Rect
	Zoom   float64
	// Value is the URL, file or attachment name, or script.
	Value string
}

// FromNative converts a backend destination.
func FromNative(d native.Dest) *Destination {
	out := &Destination{PageNo: d.Page, Rect: d.Rect, Zoom: d.Zoom, Value: d.Value}
	switch d.Kind {
	case native.DestGoTo:
		out.Kind = DestScrollTo
	case native.DestURI:
		out.Kind = DestLaunchURL
	case native.DestLaunch, native.DestGoToRemote:
		out.Kind = DestLaunchFile
	case native.DestEmbedded:
		out.Kind = DestLaunchEmbedded
	case native.DestJavaScript:
		out.Kind = DestJavaScript
	case native.DestNamedAction:
		out.Kind = NamedAction(d.Value)
	default:
		out.Kind = DestNone
	}
	return out
}

// HasPage reports whether the destination scrolls within the document.
func (d *Destination) HasPage() bool { return d != nil && d.Kind == DestScrollTo && d.PageNo > 0 }
