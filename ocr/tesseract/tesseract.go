// Package tesseract registers a gosseract backed OCR engine as the default
// when imported.
package tesseract

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"math"
	"strings"

	"github.com/otiai10/gosseract/v2"

	"github.com/wudi/pdfengine/ocr"
)

func init() {
	ocr.SetDefaultEngine(New())
}

type Engine struct {
	newClient func() *gosseract.Client
}

func New() *Engine {
	return &Engine{newClient: gosseract.NewClient}
}

func (e *Engine) Name() string { return "tesseract" }

func (e *Engine) Recognize(ctx context.Context, in ocr.Input) (ocr.Result, error) {
	c := e.newClient()
	defer c.Close()
	return recognize(ctx, c, in)
}

// RecognizeBatch reuses one client for all inputs.
func (e *Engine) RecognizeBatch(ctx context.Context, inputs []ocr.Input) ([]ocr.Result, error) {
	c := e.newClient()
	defer c.Close()
	results := make([]ocr.Result, 0, len(inputs))
	for _, in := range inputs {
		res, err := recognize(ctx, c, in)
		if err != nil {
			return nil, fmt.Errorf("recognize %s: %w", in.ID, err)
		}
		results = append(results, res)
	}
	return results, nil
}

func recognize(ctx context.Context, c *gosseract.Client, in ocr.Input) (ocr.Result, error) {
	if err := ctx.Err(); err != nil {
		return ocr.Result{}, err
	}
	data, err := crop(in.Image, in.Region)
	if err != nil {
		return ocr.Result{}, err
	}
	if err := c.SetImageFromBytes(data); err != nil {
		return ocr.Result{}, fmt.Errorf("set image: %w", err)
	}
	if len(in.Languages) > 0 {
		if err := c.SetLanguage(in.Languages...); err != nil {
			return ocr.Result{}, fmt.Errorf("set languages: %w", err)
		}
	}
	vars := map[string]string{}
	if in.DPI > 0 {
		vars["user_defined_dpi"] = fmt.Sprint(in.DPI)
	}
	for k, v := range in.Metadata {
		vars[k] = v
	}
	for k, v := range vars {
		if err := c.SetVariable(gosseract.SettableVariable(k), v); err != nil {
			return ocr.Result{}, fmt.Errorf("set variable %s: %w", k, err)
		}
	}
	text, err := c.Text()
	if err != nil {
		return ocr.Result{}, fmt.Errorf("recognize text: %w", err)
	}
	plain := strings.TrimSpace(text)

	lines := wordLines(c)
	block := ocr.TextBlock{Text: plain, Lines: lines}
	var conf float64
	for i, l := range lines {
		conf += l.Confidence
		if i == 0 {
			block.Bounds = l.Bounds
		} else {
			block.Bounds = union(block.Bounds, l.Bounds)
		}
	}
	if len(lines) > 0 {
		block.Confidence = conf / float64(len(lines))
	}
	res := ocr.Result{InputID: in.ID, PlainText: plain, Blocks: []ocr.TextBlock{block}}
	if len(in.Languages) > 0 {
		res.Language = in.Languages[0]
	}
	return res, nil
}

// wordLines groups word boxes by the line number tesseract reports.
func wordLines(c *gosseract.Client) []ocr.TextLine {
	boxes, err := c.GetBoundingBoxesVerbose()
	if err != nil {
		return nil
	}
	var (
		lines []ocr.TextLine
		key   [3]int
	)
	for _, b := range boxes {
		if strings.TrimSpace(b.Word) == "" {
			continue
		}
		w := ocr.TextWord{
			Text:       b.Word,
			Bounds:     ocr.Region{X: float64(b.Box.Min.X), Y: float64(b.Box.Min.Y), Width: float64(b.Box.Dx()), Height: float64(b.Box.Dy())},
			Confidence: b.Confidence / 100,
		}
		k := [3]int{b.BlockNum, b.ParNum, b.LineNum}
		if len(lines) == 0 || k != key {
			lines = append(lines, ocr.TextLine{Bounds: w.Bounds})
			key = k
		}
		l := &lines[len(lines)-1]
		if len(l.Words) > 0 {
			l.Text += " "
			l.Bounds = union(l.Bounds, w.Bounds)
		}
		l.Text += w.Text
		l.Words = append(l.Words, w)
	}
	for i := range lines {
		var sum float64
		for _, w := range lines[i].Words {
			sum += w.Confidence
		}
		lines[i].Confidence = sum / float64(len(lines[i].Words))
	}
	return lines
}

func union(a, b ocr.Region) ocr.Region {
	x0, y0 := math.Min(a.X, b.X), math.Min(a.Y, b.Y)
	x1, y1 := math.Max(a.X+a.Width, b.X+b.Width), math.Max(a.Y+a.Height, b.Y+b.Height)
	return ocr.Region{X: x0, Y: y0, Width: x1 - x0, Height: y1 - y0}
}

func crop(data []byte, region *ocr.Region) ([]byte, error) {
	if region == nil || region.IsEmpty() {
		return data, nil
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode for region: %w", err)
	}
	rect := image.Rect(
		int(math.Round(region.X)),
		int(math.Round(region.Y)),
		int(math.Round(region.X+region.Width)),
		int(math.Round(region.Y+region.Height)),
	).Intersect(img.Bounds())
	if rect.Empty() {
		return nil, fmt.Errorf("region outside image bounds")
	}
	sub, ok := img.(interface {
		SubImage(r image.Rectangle) image.Image
	})
	if !ok {
		return nil, fmt.Errorf("image does not support sub-image")
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, sub.SubImage(rect)); err != nil {
		return nil, fmt.Errorf("encode cropped image: %w", err)
	}
	return buf.Bytes(), nil
}
