package main

import (
	"fmt"
	"image"
	"image/png"
	"os"

	"github.com/spf13/cobra"

	"github.com/wudi/pdfengine/engine"
)

var (
	renderZoom      float64
	renderRotation  int
	renderOut       string
	renderThumbnail bool
)

var renderCmd = &cobra.Command{
	Use:   "render <file> <page>",
	Short: "Render a page to PNG",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := openDocument(cmd, args[0])
		if err != nil {
			return err
		}
		defer e.Close()
		pageNo, err := pageArg(e, args[1])
		if err != nil {
			return err
		}
		var img *image.RGBA
		if renderThumbnail {
			img, err = e.RenderThumbnail(cmd.Context(), pageNo, cfgManager.Get().Render.ThumbnailSize)
		} else {
			img, err = e.RenderPage(cmd.Context(), engine.RenderArgs{PageNo: pageNo, Zoom: renderZoom, Rotation: renderRotation})
		}
		if err != nil {
			return err
		}
		out := renderOut
		if out == "" {
			out = fmt.Sprintf("page-%d.png", pageNo)
		}
		f, err := os.Create(out)
		if err != nil {
			return err
		}
		if err := png.Encode(f, img); err != nil {
			f.Close()
			return fmt.Errorf("encode %s: %w", out, err)
		}
		if err := f.Close(); err != nil {
			return err
		}
		return output(cmd.OutOrStdout(), map[string]any{"file": out, "width": img.Bounds().Dx(), "height": img.Bounds().Dy()})
	},
}

func init() {
	renderCmd.Flags().Float64Var(&renderZoom, "zoom", 1, "zoom factor, 1 is 72 dpi")
	renderCmd.Flags().IntVar(&renderRotation, "rotate", 0, "rotation in degrees")
	renderCmd.Flags().StringVar(&renderOut, "out", "", "output file (default page-<n>.png)")
	renderCmd.Flags().BoolVar(&renderThumbnail, "thumbnail", false, "render a thumbnail of render.thumbnail_size pixels")
}
