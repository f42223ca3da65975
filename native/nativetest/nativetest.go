// Package nativetest provides an in-memory native backend for tests. It
// counts every call, detects overlapping calls into a context and can slow
// or break individual extraction stages.
package nativetest

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/wudi/pdfengine/coords"
	"github.com/wudi/pdfengine/native"
)

// Stage names passed to Library.Calls.
const (
	StageLoad        = "load"
	StageLinks       = "links"
	StageAnnotations = "annotations"
	StageRuns        = "runs"
	StageImages      = "images"
	StageFonts       = "fonts"
	StageText        = "text"
)

var ErrCorrupt = errors.New("nativetest: corrupt document")

type PageSpec struct {
	Bounds      coords.Rect
	Rotation    int
	Links       []native.Link
	Annotations []native.Annotation
	Runs        []native.TextRun
	Images      []native.ImagePlacement
	Fonts       []native.FontRef
	Text        string

	// Fail makes a stage return an error; Panic makes it panic.
	Fail  map[string]error
	Panic map[string]bool
}

type DocSpec struct {
	Pages       []PageSpec
	Password    string
	Outline     *native.Outline
	Attachments *native.Outline
	Labels      []native.LabelRange
	NamedDests  map[string]native.Dest
	Metadata    map[string]string
	Files       map[string][]byte
	P           int32

	PageCountErr error
	OutlineErr   error
}

// Library serves Doc for any input except the bytes "corrupt".
type Library struct {
	Doc DocSpec
	// Delay is slept inside every extraction stage.
	Delay time.Duration

	mu       sync.Mutex
	calls    map[string]int
	contexts int
	auth     int

	active   atomic.Int32
	overlaps atomic.Int32
	locks    atomic.Int32
}

func New(doc DocSpec) *Library {
	return &Library{Doc: doc, calls: make(map[string]int)}
}

// Pages returns n letter-sized page specs.
func Pages(n int) []PageSpec {
	out := make([]PageSpec, n)
	for i := range out {
		out[i].Bounds = coords.Rect{Dx: 612, Dy: 792}
	}
	return out
}

func (l *Library) Name() string { return "nativetest" }

func (l *Library) NewContext(locks native.Locks) (native.Context, error) {
	if locks == nil {
		return nil, errors.New("nativetest: nil locks")
	}
	l.mu.Lock()
	l.contexts++
	l.mu.Unlock()
	return &fakeContext{lib: l, locks: locks}, nil
}

// Calls reports how often stage ran for pageNo.
func (l *Library) Calls(stage string, pageNo int) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.calls[fmt.Sprintf("%s/%d", stage, pageNo)]
}

func (l *Library) Contexts() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.contexts
}

func (l *Library) AuthAttempts() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.auth
}

// Overlaps counts calls that entered a context while another was running.
func (l *Library) Overlaps() int { return int(l.overlaps.Load()) }

// LockCalls counts Lock callbacks issued through the registered Locks.
func (l *Library) LockCalls() int { return int(l.locks.Load()) }

func (l *Library) enter(stage string, pageNo int) func() {
	if l.active.Add(1) > 1 {
		l.overlaps.Add(1)
	}
	l.mu.Lock()
	l.calls[fmt.Sprintf("%s/%d", stage, pageNo)]++
	l.mu.Unlock()
	return func() { l.active.Add(-1) }
}

type fakeContext struct {
	lib   *Library
	locks native.Locks
}

func (c *fakeContext) Open(data []byte) (native.Document, error) {
	if string(data) == "corrupt" {
		return nil, ErrCorrupt
	}
	return &document{ctx: c, spec: c.lib.Doc, locked: c.lib.Doc.Password != ""}, nil
}

func (c *fakeContext) Close() error { return nil }

// withLock runs fn under a backend lock category like a real cache would.
func (c *fakeContext) withLock(kind native.LockKind, fn func()) {
	c.lib.locks.Add(1)
	c.locks.Lock(kind)
	defer c.locks.Unlock(kind)
	fn()
}

type document struct {
	ctx    *fakeContext
	spec   DocSpec
	locked bool
	closed bool
}

func (d *document) NeedsPassword() bool { return d.locked }

func (d *document) Authenticate(password string) bool {
	d.ctx.lib.mu.Lock()
	d.ctx.lib.auth++
	d.ctx.lib.mu.Unlock()
	if password == d.spec.Password {
		d.locked = false
	}
	return !d.locked
}

func (d *document) check() error {
	if d.closed {
		return errors.New("nativetest: document closed")
	}
	if d.locked {
		return native.ErrNeedsPassword
	}
	return nil
}

func (d *document) PageCount() (int, error) {
	if err := d.check(); err != nil {
		return 0, err
	}
	if d.spec.PageCountErr != nil {
		return 0, d.spec.PageCountErr
	}
	return len(d.spec.Pages), nil
}

func (d *document) LoadPage(pageNo int) (native.Page, error) {
	if err := d.check(); err != nil {
		return nil, err
	}
	if pageNo < 1 || pageNo > len(d.spec.Pages) {
		return nil, fmt.Errorf("nativetest: page %d out of range", pageNo)
	}
	defer d.ctx.lib.enter(StageLoad, pageNo)()
	spec := d.spec.Pages[pageNo-1]
	p := &page{doc: d, no: pageNo, spec: spec}
	d.ctx.withLock(native.LockAlloc, func() {
		p.links = make([]*native.Link, len(spec.Links))
		for i := range spec.Links {
			l := spec.Links[i]
			p.links[i] = &l
		}
	})
	return p, nil
}

func (d *document) Outline() (*native.Outline, error) {
	if err := d.check(); err != nil {
		return nil, err
	}
	return d.spec.Outline, d.spec.OutlineErr
}

func (d *document) Attachments() (*native.Outline, error) {
	if err := d.check(); err != nil {
		return nil, err
	}
	return d.spec.Attachments, nil
}

func (d *document) PageLabels() ([]native.LabelRange, error) {
	if err := d.check(); err != nil {
		return nil, err
	}
	return d.spec.Labels, nil
}

func (d *document) ResolveNamedDest(name string) (*native.Dest, error) {
	if err := d.check(); err != nil {
		return nil, err
	}
	dest, ok := d.spec.NamedDests[name]
	if !ok {
		return nil, nil
	}
	return &dest, nil
}

func (d *document) EmbeddedFile(name string) ([]byte, error) {
	if err := d.check(); err != nil {
		return nil, err
	}
	data, ok := d.spec.Files[name]
	if !ok {
		return nil, fmt.Errorf("nativetest: no embedded file %q", name)
	}
	return data, nil
}

func (d *document) Metadata(key string) (string, bool) {
	v, ok := d.spec.Metadata[key]
	return v, ok
}

func (d *document) Permissions() (int32, bool) { return d.spec.P, d.spec.Password != "" }

func (d *document) Close() error {
	d.closed = true
	return nil
}

type page struct {
	doc    *document
	no     int
	spec   PageSpec
	links  []*native.Link
	closed bool
}

func (p *page) Number() int         { return p.no }
func (p *page) Bounds() coords.Rect { return p.spec.Bounds }
func (p *page) Rotation() int       { return p.spec.Rotation }

func (p *page) stage(name string) error {
	if p.closed {
		return errors.New("nativetest: page closed")
	}
	done := p.doc.ctx.lib.enter(name, p.no)
	defer done()
	if d := p.doc.ctx.lib.Delay; d > 0 {
		time.Sleep(d)
	}
	if p.spec.Panic[name] {
		panic(fmt.Sprintf("nativetest: %s exploded on page %d", name, p.no))
	}
	return p.spec.Fail[name]
}

func (p *page) Links() ([]*native.Link, error) {
	if err := p.stage(StageLinks); err != nil {
		return nil, err
	}
	return p.links, nil
}

func (p *page) Annotations() ([]*native.Annotation, error) {
	if err := p.stage(StageAnnotations); err != nil {
		return nil, err
	}
	out := make([]*native.Annotation, len(p.spec.Annotations))
	for i := range p.spec.Annotations {
		a := p.spec.Annotations[i]
		out[i] = &a
	}
	return out, nil
}

func (p *page) TextRuns() ([]native.TextRun, error) {
	if err := p.stage(StageRuns); err != nil {
		return nil, err
	}
	var runs []native.TextRun
	p.doc.ctx.withLock(native.LockGlyphCache, func() { runs = p.spec.Runs })
	return runs, nil
}

func (p *page) Images() ([]native.ImagePlacement, error) {
	if err := p.stage(StageImages); err != nil {
		return nil, err
	}
	return p.spec.Images, nil
}

func (p *page) Fonts() ([]native.FontRef, error) {
	if err := p.stage(StageFonts); err != nil {
		return nil, err
	}
	var fonts []native.FontRef
	p.doc.ctx.withLock(native.LockFreetype, func() { fonts = p.spec.Fonts })
	return fonts, nil
}

func (p *page) Text() (string, error) {
	if err := p.stage(StageText); err != nil {
		return "", err
	}
	return p.spec.Text, nil
}

func (p *page) Close() error {
	p.closed = true
	return nil
}
