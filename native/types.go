package native

import "github.com/wudi/pdfengine/coords"

type DestKind int

const (
	DestNone DestKind = iota
	// DestGoTo targets a page in this document.
	DestGoTo
	// DestGoToRemote targets a page in another file.
	DestGoToRemote
	DestURI
	DestLaunch
	// DestNamedAction is a viewer action such as NextPage.
	DestNamedAction
	// DestNamed is an unresolved named destination.
	DestNamed
	DestJavaScript
	// DestEmbedded points at an embedded file by name.
	DestEmbedded
)

func (k DestKind) String() string {
	switch k {
	case DestNone:
		return "none"
	case DestGoTo:
		return "goto"
	case DestGoToRemote:
		return "gotor"
	case DestURI:
		return "uri"
	case DestLaunch:
		return "launch"
	case DestNamedAction:
		return "named-action"
	case DestNamed:
		return "named"
	case DestJavaScript:
		return "javascript"
	case DestEmbedded:
		return "embedded"
	}
	return "unknown"
}

// Dest is a resolved link target.
type Dest struct {
	Kind DestKind
	// Page is 1-based; 0 when unknown.
	Page int
	// Rect is the target area in page space, empty when the destination
	// only names a page.
	Rect coords.Rect
	// Zoom is 0 when the destination keeps the current zoom.
	Zoom float64
	// Value carries the URI, file name, action name, destination name or
	// script depending on Kind.
	Value string
}

// Link is owned by its Page and stays valid until the page is closed.
type Link struct {
	Rect coords.Rect
	Dest Dest
}

// Annotation annotation flags.
const (
	AnnotFlagInvisible = 1 << 0
	AnnotFlagHidden    = 1 << 1
	AnnotFlagNoView    = 1 << 5
)

type Annotation struct {
	Subtype  string
	Rect     coords.Rect
	Contents string
	Author   string
	Modified string
	Flags    int
	Color    []float64
	// FileName is set for FileAttachment annotations.
	FileName string
	FileData []byte
}

// TextRun is a word or word fragment in reading order.
type TextRun struct {
	Text string
	Rect coords.Rect
	// NewLine marks the first run of a line.
	NewLine bool
}

// ImagePlacement is an image drawn on a page.
type ImagePlacement struct {
	Rect coords.Rect
	// Transform maps the image unit square into page space.
	Transform coords.Matrix
	Name      string
	Width     int
	Height    int
}

type FontRef struct {
	Name     string
	Subtype  string
	Encoding string
	Embedded bool
	// Program holds an embedded TrueType or OpenType program when present.
	Program []byte
}

// Outline is a sibling-linked bookmark tree.
type Outline struct {
	Title  string
	Dest   Dest
	Open   bool
	Bold   bool
	Italic bool
	Color  []float64
	Down   *Outline
	Next   *Outline
}

// LabelStyle is the /S numbering style of a page label range.
type LabelStyle string

const (
	LabelNone       LabelStyle = ""
	LabelDecimal    LabelStyle = "D"
	LabelUpperRoman LabelStyle = "R"
	LabelLowerRoman LabelStyle = "r"
	LabelUpperAlpha LabelStyle = "A"
	LabelLowerAlpha LabelStyle = "a"
)

// LabelRange starts at the 1-based StartPage and runs until the next range.
type LabelRange struct {
	StartPage int
	Style     LabelStyle
	Prefix    string
	First     int
}
