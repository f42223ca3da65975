package toc

import (
	"strings"
	"testing"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"

	"github.com/wudi/pdfengine/elements"
	"github.com/wudi/pdfengine/native"
	"github.com/wudi/pdfengine/security"
)

func goTo(page int) native.Dest { return native.Dest{Kind: native.DestGoTo, Page: page} }

func sampleOutline() *native.Outline {
	grandchild := &native.Outline{Title: "1.1.1", Dest: goTo(3)}
	child2 := &native.Outline{Title: "1.2", Dest: goTo(4)}
	child1 := &native.Outline{Title: "1.1", Dest: goTo(2), Down: grandchild, Next: child2}
	second := &native.Outline{Title: "Chapter 2", Dest: goTo(5), Bold: true}
	return &native.Outline{Title: "Chapter 1", Dest: goTo(1), Open: true, Down: child1, Next: second}
}

func TestIDsArePreOrder(t *testing.T) {
	attachments := &native.Outline{
		Title: "data.csv", Dest: native.Dest{Kind: native.DestEmbedded, Value: "data.csv"},
		Next: &native.Outline{Title: "notes.txt", Dest: native.Dest{Kind: native.DestEmbedded, Value: "notes.txt"}},
	}
	tree := Build(sampleOutline(), attachments, Options{})
	items := tree.Flatten()
	wantTitles := []string{"Chapter 1", "1.1", "1.1.1", "1.2", "Chapter 2", "data.csv", "notes.txt"}
	if len(items) != len(wantTitles) || tree.Len() != len(wantTitles) {
		t.Fatalf("expected %d items, got %d (Len %d)", len(wantTitles), len(items), tree.Len())
	}
	for i, it := range items {
		if it.Title != wantTitles[i] {
			t.Fatalf("item %d title %q, want %q", i, it.Title, wantTitles[i])
		}
		if i > 0 && it.ID <= items[i-1].ID {
			t.Fatalf("ids not strictly increasing at %d: %d after %d", i, it.ID, items[i-1].ID)
		}
		wantAttachment := i >= 5
		if it.IsAttachment != wantAttachment {
			t.Fatalf("item %q IsAttachment = %v", it.Title, it.IsAttachment)
		}
	}
	if items[0].ID != 1 {
		t.Fatalf("first id %d", items[0].ID)
	}
	if items[5].Dest.Kind != elements.DestLaunchEmbedded {
		t.Fatalf("attachment destination %+v", items[5].Dest)
	}
	if tree.Find(3).Title != "1.1.1" || tree.Find(99) != nil {
		t.Fatalf("Find mismatch")
	}
	if !items[4].Bold || items[2].PageNo != 3 {
		t.Fatalf("item attributes lost: %+v %+v", items[4], items[2])
	}
}

func TestBuildEmpty(t *testing.T) {
	if tree := Build(nil, nil, Options{}); tree != nil {
		t.Fatalf("expected nil tree, got %+v", tree)
	}
	var nilTree *Tree
	if nilTree.Len() != 0 || len(nilTree.Flatten()) != 0 {
		t.Fatalf("nil tree should be empty")
	}
}

func TestBuildStopsOnCyclesAndLimits(t *testing.T) {
	a := &native.Outline{Title: "a"}
	b := &native.Outline{Title: "b"}
	a.Next, b.Next = b, a
	a.Down = a
	tree := Build(a, nil, Options{})
	if tree.Len() != 2 {
		t.Fatalf("cycle produced %d items", tree.Len())
	}

	deep := &native.Outline{Title: "0"}
	cur := deep
	for i := 0; i < 10; i++ {
		cur.Down = &native.Outline{Title: "n"}
		cur = cur.Down
	}
	limited := Build(deep, nil, Options{Limits: security.Limits{MaxOutlineDepth: 3}})
	maxDepth := 0
	limited.Walk(func(_ *Item, depth int) bool {
		if depth > maxDepth {
			maxDepth = depth
		}
		return true
	})
	if maxDepth != 2 {
		t.Fatalf("depth limit ignored: max depth %d", maxDepth)
	}
}

func TestWalkSkipsChildren(t *testing.T) {
	tree := Build(sampleOutline(), nil, Options{})
	var seen []string
	tree.Walk(func(it *Item, _ int) bool {
		seen = append(seen, it.Title)
		return it.Title != "Chapter 1"
	})
	if strings.Join(seen, ",") != "Chapter 1,Chapter 2" {
		t.Fatalf("walk visited %v", seen)
	}
}

func TestMarkdownAndHTML(t *testing.T) {
	outline := sampleOutline()
	outline.Title = "Intro [draft]"
	tree := Build(outline, &native.Outline{Title: "a_b.txt"}, Options{})
	md := tree.Markdown()
	if !strings.Contains(md, `- [Intro \[draft\]](#page=1)`) {
		t.Fatalf("markdown escaping:\n%s", md)
	}
	if !strings.Contains(md, "    - [1.1.1](#page=3)") {
		t.Fatalf("markdown nesting:\n%s", md)
	}
	if !strings.Contains(md, `- a\_b.txt (attachment)`) {
		t.Fatalf("attachment line:\n%s", md)
	}

	src := []byte(md)
	doc := goldmark.New().Parser().Parse(text.NewReader(src))
	items := 0
	ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if entering && n.Kind() == ast.KindListItem {
			items++
		}
		return ast.WalkContinue, nil
	})
	if items != tree.Len() {
		t.Fatalf("markdown has %d list items, tree has %d", items, tree.Len())
	}

	html, err := tree.HTML()
	if err != nil {
		t.Fatalf("HTML: %v", err)
	}
	if !strings.Contains(html, `<a href="#page=5">Chapter 2</a>`) {
		t.Fatalf("html output:\n%s", html)
	}
}
