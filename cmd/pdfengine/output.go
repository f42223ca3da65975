package main

import (
	"encoding/json"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/wudi/pdfengine/coords"
	"github.com/wudi/pdfengine/elements"
)

func output(w io.Writer, data any) error {
	switch outputFormat {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(data)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		defer enc.Close()
		return enc.Encode(data)
	}
	return fmt.Errorf("unknown output format %q", outputFormat)
}

type rectOut struct {
	X  float64 `json:"x" yaml:"x"`
	Y  float64 `json:"y" yaml:"y"`
	Dx float64 `json:"width" yaml:"width"`
	Dy float64 `json:"height" yaml:"height"`
}

func rect(r coords.Rect) rectOut { return rectOut{r.X, r.Y, r.Dx, r.Dy} }

type destOut struct {
	Kind  string  `json:"kind" yaml:"kind"`
	Page  int     `json:"page,omitempty" yaml:"page,omitempty"`
	Zoom  float64 `json:"zoom,omitempty" yaml:"zoom,omitempty"`
	Value string  `json:"value,omitempty" yaml:"value,omitempty"`
}

func dest(d *elements.Destination) *destOut {
	if d == nil {
		return nil
	}
	return &destOut{Kind: d.Kind.String(), Page: d.PageNo, Zoom: d.Zoom, Value: d.Value}
}
