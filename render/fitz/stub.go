//go:build !fitz || !cgo

package fitz

import "github.com/wudi/pdfengine/render"

const Available = false

func New(data []byte) (render.Renderer, error) {
	return nil, ErrNotAvailable
}
