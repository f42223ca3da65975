package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/wudi/pdfengine/engine"
	"github.com/wudi/pdfengine/toc"
)

func pageArg(e *engine.Engine, s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		if p := e.PageByLabel(s); p > 0 {
			return p, nil
		}
		return 0, fmt.Errorf("page %q is neither a number nor a label", s)
	}
	return n, nil
}

type infoOut struct {
	File        string            `json:"file" yaml:"file"`
	Pages       int               `json:"pages" yaml:"pages"`
	Fingerprint string            `json:"fingerprint" yaml:"fingerprint"`
	PageLabels  bool              `json:"page_labels" yaml:"page_labels"`
	Printing    bool              `json:"printing" yaml:"printing"`
	Copying     bool              `json:"copying" yaml:"copying"`
	Properties  map[string]string `json:"properties,omitempty" yaml:"properties,omitempty"`
	MediaBox    rectOut           `json:"media_box" yaml:"media_box"`
}

var infoCmd = &cobra.Command{
	Use:   "info <file>",
	Short: "Show document properties",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := openDocument(cmd, args[0])
		if err != nil {
			return err
		}
		defer e.Close()
		out := infoOut{
			File:        args[0],
			Pages:       e.PageCount(),
			Fingerprint: e.Fingerprint(),
			PageLabels:  e.HasPageLabels(),
			Printing:    e.AllowsPrinting(),
			Copying:     e.AllowsCopying(),
			Properties:  map[string]string{},
		}
		for _, p := range engine.Properties {
			if p == engine.PropFontList {
				continue
			}
			if v, ok := e.Property(cmd.Context(), p); ok {
				out.Properties[string(p)] = v
			}
		}
		if box, err := e.PageMediabox(1); err == nil {
			out.MediaBox = rect(box)
		}
		return output(cmd.OutOrStdout(), out)
	},
}

type tocItemOut struct {
	ID         int      `json:"id" yaml:"id"`
	Depth      int      `json:"depth" yaml:"depth"`
	Title      string   `json:"title" yaml:"title"`
	Attachment bool     `json:"attachment,omitempty" yaml:"attachment,omitempty"`
	Dest       *destOut `json:"dest,omitempty" yaml:"dest,omitempty"`
}

var tocHTML, tocMarkdown bool

var tocCmd = &cobra.Command{
	Use:   "toc <file>",
	Short: "Print the table of contents",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := openDocument(cmd, args[0])
		if err != nil {
			return err
		}
		defer e.Close()
		tree, err := e.TableOfContents(cmd.Context())
		if err != nil {
			return err
		}
		w := cmd.OutOrStdout()
		switch {
		case tocHTML:
			html, err := tree.HTML()
			if err != nil {
				return err
			}
			_, err = fmt.Fprint(w, html)
			return err
		case tocMarkdown:
			_, err := fmt.Fprint(w, tree.Markdown())
			return err
		}
		items := []tocItemOut{}
		tree.Walk(func(it *toc.Item, depth int) bool {
			items = append(items, tocItemOut{ID: it.ID, Depth: depth, Title: it.Title, Attachment: it.IsAttachment, Dest: dest(it.Dest)})
			return true
		})
		return output(w, items)
	},
}

type labelOut struct {
	Page  int    `json:"page" yaml:"page"`
	Label string `json:"label" yaml:"label"`
}

var labelsCmd = &cobra.Command{
	Use:   "labels <file>",
	Short: "List page labels",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := openDocument(cmd, args[0])
		if err != nil {
			return err
		}
		defer e.Close()
		out := make([]labelOut, 0, e.PageCount())
		for p := 1; p <= e.PageCount(); p++ {
			l, _ := e.PageLabel(p)
			out = append(out, labelOut{Page: p, Label: l})
		}
		return output(cmd.OutOrStdout(), out)
	},
}

type elementOut struct {
	Kind  string   `json:"kind" yaml:"kind"`
	Rect  rectOut  `json:"rect" yaml:"rect"`
	Label string   `json:"label,omitempty" yaml:"label,omitempty"`
	Dest  *destOut `json:"dest,omitempty" yaml:"dest,omitempty"`
}

var elementsCmd = &cobra.Command{
	Use:   "elements <file> <page>",
	Short: "List links, comments and images of a page",
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
		els, err := e.Elements(cmd.Context(), pageNo)
		if err != nil {
			return err
		}
		out := make([]elementOut, 0, len(els))
		for _, el := range els {
			d, _ := el.AsDestination()
			out = append(out, elementOut{Kind: el.Kind.String(), Rect: rect(el.Rect), Label: el.Label(), Dest: dest(d)})
		}
		return output(cmd.OutOrStdout(), out)
	},
}

var textOCR bool

var textCmd = &cobra.Command{
	Use:   "text <file> <page>",
	Short: "Extract the text of a page",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := *cfgManager.Get()
		if textOCR {
			cfg.OCR.Enabled = true
		}
		opts, err := engineOptions(&cfg)
		if err != nil {
			return err
		}
		e, err := engine.LoadFile(cmd.Context(), args[0], opts...)
		if err != nil {
			return err
		}
		defer e.Close()
		pageNo, err := pageArg(e, args[1])
		if err != nil {
			return err
		}
		text, err := e.ExtractPageText(cmd.Context(), pageNo)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(cmd.OutOrStdout(), text)
		return err
	},
}

var fontsCmd = &cobra.Command{
	Use:   "fonts <file>",
	Short: "List the fonts used by the document",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := openDocument(cmd, args[0])
		if err != nil {
			return err
		}
		defer e.Close()
		list, err := e.FontList(cmd.Context())
		if err != nil {
			return err
		}
		return output(cmd.OutOrStdout(), list)
	},
}

var destCmd = &cobra.Command{
	Use:   "dest <file> <name>",
	Short: "Resolve a named destination",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := openDocument(cmd, args[0])
		if err != nil {
			return err
		}
		defer e.Close()
		d, err := e.NamedDest(cmd.Context(), args[1])
		if err != nil {
			return err
		}
		if d == nil {
			return fmt.Errorf("no destination named %q", args[1])
		}
		return output(cmd.OutOrStdout(), dest(d))
	},
}

func init() {
	tocCmd.Flags().BoolVar(&tocHTML, "html", false, "print the table of contents as HTML")
	tocCmd.Flags().BoolVar(&tocMarkdown, "markdown", false, "print the table of contents as Markdown")
	tocCmd.MarkFlagsMutuallyExclusive("html", "markdown")
	textCmd.Flags().BoolVar(&textOCR, "ocr", false, "recognize pages without a text layer")
}
