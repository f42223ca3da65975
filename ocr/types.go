package ocr

import "context"

type ImageFormat string

const (
	ImageFormatPNG  ImageFormat = "image/png"
	ImageFormatJPEG ImageFormat = "image/jpeg"
)

// Region is a pixel rectangle with the origin at the top-left corner.
type Region struct {
	X      float64
	Y      float64
	Width  float64
	Height float64
}

func (r Region) IsEmpty() bool { return r.Width <= 0 || r.Height <= 0 }

// Input is one rendered page image.
type Input struct {
	// ID is echoed back in Result.InputID.
	ID     string
	Image  []byte
	Format ImageFormat
	// PageNo is the 1-based page the image was rendered from.
	PageNo int
	// DPI is the render resolution; zero means unknown.
	DPI       int
	Languages []string
	// Region restricts recognition; nil means the whole image.
	Region *Region
	// Metadata holds engine specific variables.
	Metadata map[string]string
}

type TextWord struct {
	Text       string
	Bounds     Region
	Confidence float64
}

type TextLine struct {
	Text       string
	Bounds     Region
	Words      []TextWord
	Confidence float64
}

type TextBlock struct {
	Text       string
	Bounds     Region
	Lines      []TextLine
	Confidence float64
}

type Result struct {
	InputID   string
	PlainText string
	Blocks    []TextBlock
	Language  string
}

// Engine recognizes one image at a time.
type Engine interface {
	Name() string
	Recognize(ctx context.Context, input Input) (Result, error)
}

// BatchEngine reuses setup across several images.
type BatchEngine interface {
	Engine
	RecognizeBatch(ctx context.Context, inputs []Input) ([]Result, error)
}
