package engine

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/wudi/pdfengine/coords"
	"github.com/wudi/pdfengine/elements"
	"github.com/wudi/pdfengine/native"
	"github.com/wudi/pdfengine/native/nativetest"
	"github.com/wudi/pdfengine/recovery"
	"github.com/wudi/pdfengine/security"
)

func load(t *testing.T, lib *nativetest.Library, opts ...Option) *Engine {
	t.Helper()
	opts = append([]Option{WithLibrary(lib)}, opts...)
	e, err := LoadStream(context.Background(), strings.NewReader("%PDF-1.7"), opts...)
	if err != nil {
		t.Fatalf("LoadStream: %v", err)
	}
	t.Cleanup(func() { e.Close() })
	return e
}

func richPage() nativetest.PageSpec {
	return nativetest.PageSpec{
		Bounds: coords.Rect{Dx: 600, Dy: 800},
		Links: []native.Link{
			{Rect: coords.Rect{X: 10, Y: 10, Dx: 100, Dy: 20}, Dest: native.Dest{Kind: native.DestGoTo, Page: 3}},
		},
		Annotations: []native.Annotation{
			{Subtype: "Text", Rect: coords.Rect{X: 500, Y: 10, Dx: 20, Dy: 20}, Contents: "check this"},
			{Subtype: "Popup", Rect: coords.Rect{X: 0, Y: 0, Dx: 50, Dy: 50}, Contents: "ignored"},
			{Subtype: "Text", Rect: coords.Rect{X: 0, Y: 0, Dx: 5, Dy: 5}, Contents: "hidden", Flags: native.AnnotFlagHidden},
			{Subtype: "FileAttachment", Rect: coords.Rect{X: 500, Y: 700, Dx: 20, Dy: 20}, FileName: "data.csv", FileData: []byte("a,b")},
		},
		Runs: []native.TextRun{
			{Text: "Visit", Rect: coords.Rect{X: 10, Y: 100, Dx: 50, Dy: 12}, NewLine: true},
			{Text: "www.example.com", Rect: coords.Rect{X: 70, Y: 100, Dx: 150, Dy: 12}},
		},
		Images: []native.ImagePlacement{
			{Rect: coords.Rect{X: 100, Y: 300, Dx: 200, Dy: 100}, Transform: coords.Matrix{200, 0, 0, -100, 100, 400}, Name: "Im1", Width: 400, Height: 200},
			{Rect: coords.Rect{X: 100, Y: 300}, Name: "Im2"},
		},
		Text: "Visit www.example.com",
	}
}

func TestGetFastBeforeExtraction(t *testing.T) {
	lib := nativetest.New(nativetest.DocSpec{Pages: nativetest.Pages(3)})
	e := load(t, lib)

	if e.PageCount() != 3 {
		t.Fatalf("PageCount() = %d", e.PageCount())
	}
	for pageNo := 1; pageNo <= 3; pageNo++ {
		info, err := e.GetFast(pageNo)
		if err != nil {
			t.Fatalf("GetFast(%d): %v", pageNo, err)
		}
		if info.FullyLoaded {
			t.Fatalf("page %d loaded before any full request", pageNo)
		}
		if info.MediaBox != (coords.Rect{Dx: 612, Dy: 792}) {
			t.Fatalf("page %d media box %+v", pageNo, info.MediaBox)
		}
	}
	if lib.Calls(nativetest.StageLinks, 2) != 0 {
		t.Fatalf("extraction ran during fast access")
	}

	before, _ := e.GetFast(2)
	full, err := e.GetFull(context.Background(), 2)
	if err != nil {
		t.Fatalf("GetFull(2): %v", err)
	}
	if !full.FullyLoaded || full.CommentsNeedRebuilding {
		t.Fatalf("page not promoted: %+v", full)
	}
	after, _ := e.GetFast(2)
	if !after.FullyLoaded || after.MediaBox != before.MediaBox {
		t.Fatalf("fast record changed: %+v -> %+v", before, after)
	}
	if lib.Calls(nativetest.StageLinks, 2) != 1 {
		t.Fatalf("links extracted %d times", lib.Calls(nativetest.StageLinks, 2))
	}
	if other, _ := e.GetFast(1); other.FullyLoaded {
		t.Fatalf("page 1 promoted by page 2 request")
	}

	for _, pageNo := range []int{0, -1, 4} {
		if _, err := e.GetFast(pageNo); !errors.Is(err, ErrOutOfRange) {
			t.Fatalf("GetFast(%d) err = %v", pageNo, err)
		}
		if _, err := e.GetFull(context.Background(), pageNo); !errors.Is(err, ErrOutOfRange) {
			t.Fatalf("GetFull(%d) err = %v", pageNo, err)
		}
		if err := e.InvalidateComments(pageNo); !errors.Is(err, ErrOutOfRange) {
			t.Fatalf("InvalidateComments(%d) err = %v", pageNo, err)
		}
	}
}

func TestConcurrentGetFullExtractsOnce(t *testing.T) {
	pages := nativetest.Pages(6)
	pages[4] = richPage()
	lib := nativetest.New(nativetest.DocSpec{Pages: pages})
	lib.Delay = 20 * time.Millisecond
	e := load(t, lib)

	const callers = 8
	var (
		wg    sync.WaitGroup
		infos [callers]PageInfo
		errs  [callers]error
	)
	start := make(chan struct{})
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			infos[i], errs[i] = e.GetFull(context.Background(), 5)
		}(i)
	}
	close(start)
	wg.Wait()

	for _, stage := range []string{nativetest.StageLinks, nativetest.StageRuns, nativetest.StageAnnotations, nativetest.StageImages} {
		if n := lib.Calls(stage, 5); n != 1 {
			t.Fatalf("stage %s ran %d times", stage, n)
		}
	}
	for i := range infos {
		if errs[i] != nil {
			t.Fatalf("caller %d: %v", i, errs[i])
		}
		if !infos[i].FullyLoaded {
			t.Fatalf("caller %d saw an unloaded page", i)
		}
		if len(infos[i].LinkElements) != 1 || infos[i].LinkElements[0] != infos[0].LinkElements[0] {
			t.Fatalf("caller %d saw different links", i)
		}
		if len(infos[i].Comments) != len(infos[0].Comments) || len(infos[i].Images) != len(infos[0].Images) {
			t.Fatalf("caller %d saw different elements", i)
		}
	}
	if lib.Overlaps() != 0 {
		t.Fatalf("backend entered concurrently %d times", lib.Overlaps())
	}
}

func TestConcurrentDifferentPages(t *testing.T) {
	lib := nativetest.New(nativetest.DocSpec{Pages: nativetest.Pages(10)})
	lib.Delay = time.Millisecond
	e := load(t, lib)

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for pageNo := 1; pageNo <= 10; pageNo++ {
				if _, err := e.GetFull(context.Background(), pageNo); err != nil {
					t.Errorf("GetFull(%d): %v", pageNo, err)
				}
				if _, err := e.GetFast(pageNo); err != nil {
					t.Errorf("GetFast(%d): %v", pageNo, err)
				}
			}
		}()
	}
	wg.Wait()
	for pageNo := 1; pageNo <= 10; pageNo++ {
		if n := lib.Calls(nativetest.StageLinks, pageNo); n != 1 {
			t.Fatalf("page %d extracted %d times", pageNo, n)
		}
	}
	if lib.Overlaps() != 0 {
		t.Fatalf("backend entered concurrently")
	}
	if lib.LockCalls() == 0 {
		t.Fatalf("backend locks never used")
	}
}

func TestInvalidateCommentsRebuildsOnlyComments(t *testing.T) {
	pages := nativetest.Pages(2)
	pages[0] = richPage()
	lib := nativetest.New(nativetest.DocSpec{Pages: pages})
	e := load(t, lib)
	ctx := context.Background()

	first, err := e.GetFull(ctx, 1)
	if err != nil {
		t.Fatalf("GetFull: %v", err)
	}
	if len(first.Links) != 1 || len(first.Images) != 2 || len(first.Comments) != 2 || len(first.AutoLinks) != 1 {
		t.Fatalf("unexpected extraction: links %d images %d comments %d autolinks %d",
			len(first.Links), len(first.Images), len(first.Comments), len(first.AutoLinks))
	}

	if err := e.InvalidateComments(1); err != nil {
		t.Fatalf("InvalidateComments: %v", err)
	}
	stale, _ := e.GetFast(1)
	if !stale.FullyLoaded || !stale.CommentsNeedRebuilding {
		t.Fatalf("flags after invalidation: %+v", stale)
	}

	second, err := e.GetFull(ctx, 1)
	if err != nil {
		t.Fatalf("GetFull after invalidation: %v", err)
	}
	if second.CommentsNeedRebuilding || !second.FullyLoaded {
		t.Fatalf("flags after rebuild: %+v", second)
	}
	if lib.Calls(nativetest.StageAnnotations, 1) != 2 {
		t.Fatalf("annotations read %d times", lib.Calls(nativetest.StageAnnotations, 1))
	}
	for _, stage := range []string{nativetest.StageLinks, nativetest.StageRuns, nativetest.StageImages} {
		if n := lib.Calls(stage, 1); n != 1 {
			t.Fatalf("stage %s re-ran (%d calls)", stage, n)
		}
	}
	if second.Links[0] != first.Links[0] || second.LinkElements[0] != first.LinkElements[0] {
		t.Fatalf("link identity changed")
	}
	if second.Images[0] != first.Images[0] || second.AutoLinks[0] != first.AutoLinks[0] {
		t.Fatalf("image or auto link identity changed")
	}
	if second.Comments[0] == first.Comments[0] {
		t.Fatalf("comments were not rebuilt")
	}
}

func TestAuthentication(t *testing.T) {
	spec := nativetest.DocSpec{Pages: nativetest.Pages(3), Password: "secret"}
	ctx := context.Background()
	cases := []struct {
		name string
		opts []Option
		want error
	}{
		{"wrong password", []Option{WithPassword("wrong")}, ErrAuthenticationFailed},
		{"declined", []Option{WithPasswordPrompt(security.PasswordFunc(func(security.PasswordRequest) (string, bool) {
			return "", false
		}))}, ErrAuthenticationCancelled},
		{"no prompt", nil, ErrAuthenticationCancelled},
		{"every attempt wrong", []Option{
			WithLimits(security.Limits{MaxPasswordAttempts: 2}),
			WithPasswordPrompt(security.PasswordFunc(func(security.PasswordRequest) (string, bool) { return "nope", true })),
		}, ErrAuthenticationFailed},
	}
	for _, c := range cases {
		lib := nativetest.New(spec)
		opts := append([]Option{WithLibrary(lib)}, c.opts...)
		e, err := LoadStream(ctx, strings.NewReader("x"), opts...)
		if !errors.Is(err, c.want) || e != nil {
			t.Fatalf("%s: got %v, %v; want %v", c.name, e, err, c.want)
		}
		if lib.Calls(nativetest.StageLoad, 1) != 0 {
			t.Fatalf("%s: page table populated", c.name)
		}
	}

	lib := nativetest.New(spec)
	var requests []security.PasswordRequest
	prompt := security.PasswordFunc(func(req security.PasswordRequest) (string, bool) {
		requests = append(requests, req)
		if req.Attempt == 1 {
			return "guess", true
		}
		return "secret", true
	})
	e := load(t, lib, WithPasswordPrompt(prompt))
	if e.PageCount() != 3 || len(requests) != 2 || !requests[1].Retry || requests[0].Retry {
		t.Fatalf("retry flow: pages %d requests %+v", e.PageCount(), requests)
	}
}

func TestParseFailures(t *testing.T) {
	ctx := context.Background()
	lib := nativetest.New(nativetest.DocSpec{Pages: nativetest.Pages(1)})
	if _, err := LoadStream(ctx, strings.NewReader("corrupt"), WithLibrary(lib)); !errors.Is(err, ErrParseFailure) || !errors.Is(err, nativetest.ErrCorrupt) {
		t.Fatalf("corrupt: %v", err)
	}
	empty := nativetest.New(nativetest.DocSpec{})
	if _, err := LoadStream(ctx, strings.NewReader("x"), WithLibrary(empty)); !errors.Is(err, ErrParseFailure) {
		t.Fatalf("empty: %v", err)
	}
	broken := nativetest.New(nativetest.DocSpec{Pages: nativetest.Pages(2), PageCountErr: errors.New("bad xref")})
	if _, err := LoadStream(ctx, strings.NewReader("x"), WithLibrary(broken)); !errors.Is(err, ErrParseFailure) {
		t.Fatalf("page count: %v", err)
	}
	big := strings.NewReader(strings.Repeat("x", 64))
	if _, err := LoadStream(ctx, big, WithLibrary(lib), WithLimits(security.Limits{MaxDocumentSize: 16})); !errors.Is(err, ErrParseFailure) {
		t.Fatalf("oversized: %v", err)
	}

	outline := nativetest.New(nativetest.DocSpec{Pages: nativetest.Pages(1), OutlineErr: errors.New("loop")})
	if _, err := LoadStream(ctx, strings.NewReader("x"), WithLibrary(outline), WithRecoveryStrategy(recovery.NewStrictStrategy())); !errors.Is(err, ErrParseFailure) {
		t.Fatalf("strict outline failure: %v", err)
	}
	e := load(t, outline)
	if e.PageCount() != 1 {
		t.Fatalf("lenient load lost pages")
	}
}

func TestExtractionFailuresDegrade(t *testing.T) {
	boom := errors.New("bad annotation dictionary")
	page := richPage()
	page.Fail = map[string]error{nativetest.StageAnnotations: boom}
	page.Panic = map[string]bool{nativetest.StageImages: true}
	lib := nativetest.New(nativetest.DocSpec{Pages: []nativetest.PageSpec{page, page}})

	lenient := recovery.NewLenientStrategy(nil)
	e := load(t, lib, WithRecoveryStrategy(lenient))
	info, err := e.GetFull(context.Background(), 1)
	if err != nil {
		t.Fatalf("GetFull: %v", err)
	}
	if !info.FullyLoaded || len(info.Links) != 1 || len(info.AutoLinks) != 1 {
		t.Fatalf("partial results lost: %+v", info)
	}
	if len(info.Comments) != 0 || len(info.Images) != 0 {
		t.Fatalf("failed steps produced data: %+v", info)
	}
	errs := lenient.Errors()
	if len(errs) != 2 || !errors.Is(errs[0], ErrExtractionFailure) || !errors.Is(errs[0], boom) {
		t.Fatalf("recorded errors %v", errs)
	}
	var pe *PageError
	if !errors.As(errs[1], &pe) || pe.Stage != StageImages || pe.PageNo != 1 {
		t.Fatalf("panic not converted: %v", errs[1])
	}

	strict := load(t, nativetest.New(nativetest.DocSpec{Pages: []nativetest.PageSpec{page}}), WithRecoveryStrategy(recovery.NewStrictStrategy()))
	info, err = strict.GetFull(context.Background(), 1)
	if err != nil || !info.FullyLoaded {
		t.Fatalf("strict GetFull: %+v, %v", info, err)
	}
	if _, err := strict.GetFull(context.Background(), 1); err != nil {
		t.Fatalf("second GetFull: %v", err)
	}
}

func TestStrictStrategySkipsRemainingSteps(t *testing.T) {
	page := richPage()
	page.Fail = map[string]error{nativetest.StageLinks: errors.New("broken /Annots")}
	lib := nativetest.New(nativetest.DocSpec{Pages: []nativetest.PageSpec{page}})
	e := load(t, lib, WithRecoveryStrategy(recovery.NewStrictStrategy()))
	info, err := e.GetFull(context.Background(), 1)
	if err != nil || !info.FullyLoaded {
		t.Fatalf("GetFull: %+v, %v", info, err)
	}
	if lib.Calls(nativetest.StageAnnotations, 1) != 0 || lib.Calls(nativetest.StageImages, 1) != 0 {
		t.Fatalf("steps after a strict failure still ran")
	}
}

func TestTableOfContentsAndNamedDests(t *testing.T) {
	outline := &native.Outline{
		Title: "Intro", Dest: native.Dest{Kind: native.DestGoTo, Page: 1},
		Down: &native.Outline{Title: "Scope", Dest: native.Dest{Kind: native.DestNamed, Value: "scope"}},
		Next: &native.Outline{Title: "Body", Dest: native.Dest{Kind: native.DestGoTo, Page: 2}},
	}
	attachments := &native.Outline{Title: "data.csv", Dest: native.Dest{Kind: native.DestEmbedded, Value: "data.csv"}}
	lib := nativetest.New(nativetest.DocSpec{
		Pages:       nativetest.Pages(3),
		Outline:     outline,
		Attachments: attachments,
		NamedDests:  map[string]native.Dest{"scope": {Kind: native.DestGoTo, Page: 3, Zoom: 1.5}},
		Files:       map[string][]byte{"data.csv": []byte("x,y")},
	})
	e := load(t, lib)
	ctx := context.Background()

	tree, err := e.TableOfContents(ctx)
	if err != nil {
		t.Fatalf("TableOfContents: %v", err)
	}
	items := tree.Flatten()
	if len(items) != 4 {
		t.Fatalf("expected 4 items, got %d", len(items))
	}
	for i, it := range items {
		if it.ID != i+1 {
			t.Fatalf("item %q id %d", it.Title, it.ID)
		}
		if it.IsAttachment != (it.Title == "data.csv") {
			t.Fatalf("item %q attachment flag %v", it.Title, it.IsAttachment)
		}
	}
	if scope := items[1]; scope.Dest.Kind != elements.DestScrollTo || scope.Dest.PageNo != 3 {
		t.Fatalf("named destination not resolved in outline: %+v", scope.Dest)
	}
	again, _ := e.TableOfContents(ctx)
	if again != tree {
		t.Fatalf("table of contents rebuilt")
	}

	d, err := e.NamedDest(ctx, "scope")
	if err != nil || d == nil || d.PageNo != 3 || d.Zoom != 1.5 {
		t.Fatalf("NamedDest(scope) = %+v, %v", d, err)
	}
	if d, err := e.NamedDest(ctx, "missing"); d != nil || err != nil {
		t.Fatalf("NamedDest(missing) = %+v, %v", d, err)
	}
	if data, err := e.EmbeddedFile(ctx, "data.csv"); err != nil || string(data) != "x,y" {
		t.Fatalf("EmbeddedFile = %q, %v", data, err)
	}

	bare := load(t, nativetest.New(nativetest.DocSpec{Pages: nativetest.Pages(1)}))
	if tree, err := bare.TableOfContents(ctx); tree != nil || err != nil {
		t.Fatalf("document without outline: %+v, %v", tree, err)
	}
}

func TestPageLabels(t *testing.T) {
	lib := nativetest.New(nativetest.DocSpec{
		Pages: nativetest.Pages(5),
		Labels: []native.LabelRange{
			{StartPage: 1, Style: native.LabelLowerRoman, First: 1},
			{StartPage: 3, Style: native.LabelDecimal, First: 1},
		},
	})
	e := load(t, lib)
	if !e.HasPageLabels() {
		t.Fatalf("labels missing")
	}
	if l, ok := e.PageLabel(2); !ok || l != "ii" {
		t.Fatalf("PageLabel(2) = %q, %v", l, ok)
	}
	if l, _ := e.PageLabel(3); l != "1" {
		t.Fatalf("PageLabel(3) = %q", l)
	}
	if p := e.PageByLabel("ii"); p != 2 {
		t.Fatalf("PageByLabel(ii) = %d", p)
	}
	if p := e.PageByLabel("3"); p != 5 {
		t.Fatalf("PageByLabel(3) = %d", p)
	}
	if p := e.PageByLabel("xx"); p != -1 {
		t.Fatalf("PageByLabel(xx) = %d", p)
	}
	if _, ok := e.PageLabel(6); ok {
		t.Fatalf("label for missing page")
	}

	plain := load(t, nativetest.New(nativetest.DocSpec{Pages: nativetest.Pages(4)}))
	if plain.HasPageLabels() {
		t.Fatalf("unexpected labels")
	}
	if l, ok := plain.PageLabel(4); !ok || l != "4" {
		t.Fatalf("default label %q", l)
	}
	if plain.PageByLabel(" 2 ") != 2 || plain.PageByLabel("9") != -1 {
		t.Fatalf("numeric fallback broken")
	}
}

func TestPageLabelStartIsCapped(t *testing.T) {
	ranges := []native.LabelRange{{StartPage: 1, Style: native.LabelUpperRoman, First: 1 << 40}}
	lib := nativetest.New(nativetest.DocSpec{Pages: nativetest.Pages(2), Labels: ranges})
	e := load(t, lib, WithLimits(security.Limits{MaxLabelNumber: 3000}))
	if l, _ := e.PageLabel(1); l != "MMM" {
		t.Fatalf("PageLabel(1) = %q", l)
	}
	if l, _ := e.PageLabel(2); l != "MMMI" {
		t.Fatalf("PageLabel(2) = %q", l)
	}
	if ranges[0].First != 1<<40 {
		t.Fatalf("document label ranges modified")
	}
}

func TestClone(t *testing.T) {
	lib := nativetest.New(nativetest.DocSpec{Pages: nativetest.Pages(3), Password: "secret"})
	e := load(t, lib, WithPassword("secret"))
	ctx := context.Background()
	if _, err := e.GetFull(ctx, 1); err != nil {
		t.Fatalf("GetFull: %v", err)
	}

	c, err := e.Clone(ctx)
	if err != nil {
		t.Fatalf("Clone: %v", err)
	}
	defer c.Close()
	if c.ID() == e.ID() || c.locks == e.locks || c.doc == e.doc {
		t.Fatalf("clone shares state")
	}
	if lib.Contexts() != 2 {
		t.Fatalf("expected a second backend context, got %d", lib.Contexts())
	}
	if info, _ := c.GetFast(1); info.FullyLoaded {
		t.Fatalf("clone inherited the extraction state")
	}
	if _, err := c.GetFull(ctx, 2); err != nil {
		t.Fatalf("clone GetFull: %v", err)
	}
	if info, _ := e.GetFast(2); info.FullyLoaded {
		t.Fatalf("clone extraction leaked into the original")
	}
	if c.Fingerprint() != e.Fingerprint() || string(c.FileData()) != string(e.FileData()) {
		t.Fatalf("clone reads different bytes")
	}

	if err := e.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if _, err := e.GetFull(ctx, 3); !errors.Is(err, ErrClosed) {
		t.Fatalf("closed engine: %v", err)
	}
	if _, err := e.Clone(ctx); !errors.Is(err, ErrClosed) {
		t.Fatalf("clone of closed engine: %v", err)
	}
	if _, err := c.GetFull(ctx, 3); err != nil {
		t.Fatalf("clone unusable after original closed: %v", err)
	}
}

func TestLockAdapter(t *testing.T) {
	var l lockAdapter
	for k := native.LockKind(0); k < native.LockMax; k++ {
		l.Lock(k)
	}
	done := make(chan struct{})
	go func() {
		l.Lock(native.LockAlloc)
		l.Unlock(native.LockAlloc)
		close(done)
	}()
	select {
	case <-done:
		t.Fatalf("lock category not exclusive")
	case <-time.After(10 * time.Millisecond):
	}
	for k := native.LockKind(0); k < native.LockMax; k++ {
		l.Unlock(k)
	}
	<-done
}
