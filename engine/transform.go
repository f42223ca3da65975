package engine

import (
	"fmt"

	"github.com/wudi/pdfengine/coords"
)

// viewMatrix maps page space to device space for a zoom and rotation.
func (e *Engine) viewMatrix(pageNo int, zoom float64, rotation int) (coords.Matrix, coords.Rect, error) {
	box, err := e.PageMediabox(pageNo)
	if err != nil {
		return coords.Matrix{}, coords.Rect{}, err
	}
	return coords.ViewMatrix(box, zoom, rotation), box, nil
}

// Transform maps r from page to device space, or back when inverse is set.
func (e *Engine) Transform(r coords.Rect, pageNo int, zoom float64, rotation int, inverse bool) (coords.Rect, error) {
	m, _, err := e.viewMatrix(pageNo, zoom, rotation)
	if err != nil {
		return coords.Rect{}, err
	}
	if inverse {
		if m, err = m.Inverse(); err != nil {
			return coords.Rect{}, fmt.Errorf("engine: page %d zoom %g: %w", pageNo, zoom, err)
		}
	}
	return m.TransformRect(r), nil
}

// TransformPoint maps a single point like Transform.
func (e *Engine) TransformPoint(pt coords.Point, pageNo int, zoom float64, rotation int, inverse bool) (coords.Point, error) {
	m, _, err := e.viewMatrix(pageNo, zoom, rotation)
	if err != nil {
		return coords.Point{}, err
	}
	if inverse {
		if m, err = m.Inverse(); err != nil {
			return coords.Point{}, fmt.Errorf("engine: page %d zoom %g: %w", pageNo, zoom, err)
		}
	}
	return m.Transform(pt), nil
}
