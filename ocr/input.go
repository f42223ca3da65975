package ocr

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"maps"
	"strconv"
)

type InputOption func(*Input)

func WithLanguages(langs ...string) InputOption {
	return func(in *Input) { in.Languages = append([]string(nil), langs...) }
}

// WithRegion limits recognition to region; an empty region clears it.
func WithRegion(region Region) InputOption {
	return func(in *Input) {
		if region.IsEmpty() {
			in.Region = nil
			return
		}
		in.Region = &region
	}
}

func WithDPI(dpi int) InputOption {
	return func(in *Input) { in.DPI = dpi }
}

// WithVariable sets an engine variable such as "tessedit_pageseg_mode".
func WithVariable(name, value string) InputOption {
	return func(in *Input) {
		if in.Metadata == nil {
			in.Metadata = make(map[string]string)
		}
		in.Metadata[name] = value
	}
}

// WithPageSegMode selects the Tesseract page segmentation mode.
func WithPageSegMode(mode int) InputOption {
	return WithVariable("tessedit_pageseg_mode", strconv.Itoa(mode))
}

func WithMetadata(metadata map[string]string) InputOption {
	return func(in *Input) {
		if len(metadata) == 0 {
			in.Metadata = nil
			return
		}
		in.Metadata = maps.Clone(metadata)
	}
}

// InputFromImage encodes a rendered page as PNG. The ID is "page-<n>".
func InputFromImage(pageNo int, img image.Image, opts ...InputOption) (Input, error) {
	if img == nil {
		return Input{}, fmt.Errorf("page %d: no image", pageNo)
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return Input{}, fmt.Errorf("encode page %d: %w", pageNo, err)
	}
	in := Input{
		ID:     fmt.Sprintf("page-%d", pageNo),
		Image:  buf.Bytes(),
		Format: ImageFormatPNG,
		PageNo: pageNo,
	}
	for _, opt := range opts {
		opt(&in)
	}
	return in, nil
}
