package ocr

import (
	"context"
	"fmt"
	"image"
	"sync/atomic"
)

var defaultEngine atomic.Pointer[Engine]

func init() {
	var e Engine = noopEngine{}
	defaultEngine.Store(&e)
}

// DefaultEngine returns the registered engine, a no-op one when none is.
func DefaultEngine() Engine { return *defaultEngine.Load() }

// SetDefaultEngine registers e; nil restores the no-op engine.
func SetDefaultEngine(e Engine) {
	if e == nil {
		e = noopEngine{}
	}
	defaultEngine.Store(&e)
}

// Available reports whether a real engine is registered.
func Available() bool {
	_, noop := DefaultEngine().(noopEngine)
	return !noop
}

// RecognizePages runs engine over the rendered pages, in order. pages[i]
// holds page first+i.
func RecognizePages(ctx context.Context, engine Engine, first int, pages []image.Image, opts ...InputOption) ([]Result, error) {
	inputs := make([]Input, 0, len(pages))
	for i, img := range pages {
		in, err := InputFromImage(first+i, img, opts...)
		if err != nil {
			return nil, err
		}
		inputs = append(inputs, in)
	}
	if b, ok := engine.(BatchEngine); ok {
		return b.RecognizeBatch(ctx, inputs)
	}
	results := make([]Result, 0, len(inputs))
	for _, in := range inputs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		res, err := engine.Recognize(ctx, in)
		if err != nil {
			return nil, fmt.Errorf("recognize %s: %w", in.ID, err)
		}
		results = append(results, res)
	}
	return results, nil
}

// PageText recognizes a single rendered page and returns its plain text.
func PageText(ctx context.Context, engine Engine, pageNo int, img image.Image, opts ...InputOption) (string, error) {
	res, err := RecognizePages(ctx, engine, pageNo, []image.Image{img}, opts...)
	if err != nil {
		return "", err
	}
	if len(res) == 0 {
		return "", nil
	}
	return res[0].PlainText, nil
}

type noopEngine struct{}

func (noopEngine) Name() string { return "noop" }

func (noopEngine) Recognize(_ context.Context, in Input) (Result, error) {
	return Result{InputID: in.ID}, nil
}
