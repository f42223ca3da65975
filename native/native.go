// Package native defines the contract between the engine and a PDF parsing
// backend. A backend context is not safe for concurrent use; the engine
// serializes every call on a Context, its Documents and its Pages. The
// backend in turn guards its own shared caches through the Locks it was
// created with.
package native

import (
	"errors"

	"github.com/wudi/pdfengine/coords"
)

var (
	// ErrInvalidPassword is returned by Open and Authenticate when the
	// document is encrypted and the password does not unlock it.
	ErrInvalidPassword = errors.New("native: invalid password")
	// ErrNeedsPassword is returned by document accessors before a
	// successful Authenticate.
	ErrNeedsPassword = errors.New("native: document is locked")
)

// Library creates independent parsing contexts.
type Library interface {
	Name() string
	NewContext(locks Locks) (Context, error)
}

// Context owns backend caches. Documents opened from the same context share
// them.
type Context interface {
	Open(data []byte) (Document, error)
	Close() error
}

type Document interface {
	NeedsPassword() bool
	Authenticate(password string) bool

	PageCount() (int, error)
	// LoadPage returns the 1-based page pageNo.
	LoadPage(pageNo int) (Page, error)

	Outline() (*Outline, error)
	// Attachments lists embedded files as a flat outline.
	Attachments() (*Outline, error)
	PageLabels() ([]LabelRange, error)
	// ResolveNamedDest returns nil, nil when name is not defined.
	ResolveNamedDest(name string) (*Dest, error)
	EmbeddedFile(name string) ([]byte, error)

	// Metadata returns a document information entry such as "Title" or
	// the "PdfVersion" header pseudo entry.
	Metadata(key string) (string, bool)
	// Permissions returns the /P bits and whether the document is encrypted.
	Permissions() (p int32, encrypted bool)

	Close() error
}

// Page is a loaded page. Geometry is expressed in page space: origin at the
// top-left of the displayed page, y growing down, page rotation applied.
type Page interface {
	Number() int
	Bounds() coords.Rect
	// Rotation is the normalized /Rotate value.
	Rotation() int

	Links() ([]*Link, error)
	Annotations() ([]*Annotation, error)
	TextRuns() ([]TextRun, error)
	Images() ([]ImagePlacement, error)
	Fonts() ([]FontRef, error)
	Text() (string, error)

	Close() error
}
