// Package toc turns a native outline into the table of contents handed to
// callers.
package toc

import (
	"github.com/wudi/pdfengine/elements"
	"github.com/wudi/pdfengine/native"
	"github.com/wudi/pdfengine/security"
)

// Item is one table of contents entry. IDs start at 1 and follow pre-order
// across the outline and then the attachments.
type Item struct {
	ID           int
	Title        string
	PageNo       int
	Open         bool
	Bold         bool
	Italic       bool
	Color        []float64
	IsAttachment bool
	Dest         *elements.Destination
	Children     []*Item
}

// Tree has a synthetic root with ID 0.
type Tree struct {
	Root  *Item
	count int
}

type Options struct {
	Limits security.Limits
	// Resolve converts backend destinations; nil uses elements.FromNative.
	Resolve func(native.Dest) *elements.Destination
}

type builder struct {
	opts    Options
	nextID  int
	visited map[*native.Outline]bool
}

// Build returns nil when the document has neither an outline nor
// attachments.
func Build(outline, attachments *native.Outline, opts Options) *Tree {
	if outline == nil && attachments == nil {
		return nil
	}
	opts.Limits = opts.Limits.Merge()
	if opts.Resolve == nil {
		opts.Resolve = elements.FromNative
	}
	b := &builder{opts: opts, visited: make(map[*native.Outline]bool)}
	root := &Item{}
	root.Children = b.siblings(outline, 0, false)
	root.Children = append(root.Children, b.siblings(attachments, 0, true)...)
	return &Tree{Root: root, count: b.nextID}
}

func (b *builder) siblings(o *native.Outline, depth int, attachment bool) []*Item {
	if depth >= b.opts.Limits.MaxOutlineDepth {
		return nil
	}
	var items []*Item
	for ; o != nil; o = o.Next {
		if b.visited[o] || b.nextID >= b.opts.Limits.MaxOutlineItems {
			break
		}
		b.visited[o] = true
		b.nextID++
		item := &Item{
			ID:           b.nextID,
			Title:        o.Title,
			Open:         o.Open,
			Bold:         o.Bold,
			Italic:       o.Italic,
			Color:        o.Color,
			IsAttachment: attachment,
			Dest:         b.opts.Resolve(o.Dest),
		}
		if item.Dest != nil {
			item.PageNo = item.Dest.PageNo
		}
		item.Children = b.siblings(o.Down, depth+1, attachment)
		items = append(items, item)
	}
	return items
}

// Len is the number of items excluding the root.
func (t *Tree) Len() int {
	if t == nil {
		return 0
	}
	return t.count
}

// Walk visits items in pre-order. Returning false from fn skips the
// children of that item.
func (t *Tree) Walk(fn func(item *Item, depth int) bool) {
	if t == nil {
		return
	}
	var walk func(items []*Item, depth int)
	walk = func(items []*Item, depth int) {
		for _, it := range items {
			if fn(it, depth) {
				walk(it.Children, depth+1)
			}
		}
	}
	walk(t.Root.Children, 0)
}

func (t *Tree) Flatten() []*Item {
	out := make([]*Item, 0, t.Len())
	t.Walk(func(it *Item, _ int) bool {
		out = append(out, it)
		return true
	})
	return out
}

func (t *Tree) Find(id int) *Item {
	var found *Item
	t.Walk(func(it *Item, _ int) bool {
		if it.ID == id {
			found = it
		}
		return found == nil
	})
	return found
}
