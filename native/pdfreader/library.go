// Package pdfreader implements the native backend on top of
// github.com/ledongthuc/pdf.
package pdfreader

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"sync/atomic"

	"github.com/ledongthuc/pdf"

	"github.com/wudi/pdfengine/native"
	"github.com/wudi/pdfengine/security"
)

// Library is the ledongthuc/pdf backend.
type Library struct {
	limits security.Limits
}

type Option func(*Library)

// WithLimits bounds recursion inside the backend.
func WithLimits(l security.Limits) Option {
	return func(lib *Library) { lib.limits = l.Merge() }
}

func New(opts ...Option) *Library {
	lib := &Library{limits: security.DefaultLimits()}
	for _, opt := range opts {
		opt(lib)
	}
	return lib
}

func (*Library) Name() string { return "ledongthuc/pdf" }

func (l *Library) NewContext(locks native.Locks) (native.Context, error) {
	if locks == nil {
		return nil, errors.New("pdfreader: nil locks")
	}
	return &Context{
		locks:  locks,
		limits: l.limits,
		fonts:  make(map[string][]byte),
		runs:   make(map[runKey][]native.TextRun),
	}, nil
}

// Context holds caches shared by every document it opened. Each cache is
// guarded by the registered lock of its category.
type Context struct {
	locks  native.Locks
	limits security.Limits
	docs   atomic.Int64
	closed atomic.Bool

	// LockAlloc
	pool []*bytes.Buffer
	// LockFreetype
	fonts map[string][]byte
	// LockGlyphCache
	runs map[runKey][]native.TextRun
}

type runKey struct {
	doc  int64
	page int
}

func (c *Context) Open(data []byte) (native.Document, error) {
	if c.closed.Load() {
		return nil, errors.New("pdfreader: context closed")
	}
	d := &Document{ctx: c, data: data, id: c.docs.Add(1)}
	err := guard("open", func() error {
		r, err := pdf.NewReaderEncrypted(bytes.NewReader(data), int64(len(data)), nil)
		if err != nil {
			return err
		}
		d.r = r
		return nil
	})
	switch {
	case err == nil:
	case errors.Is(err, pdf.ErrInvalidPassword):
		d.locked = true
	default:
		return nil, fmt.Errorf("pdfreader: open: %w", err)
	}
	return d, nil
}

func (c *Context) Close() error {
	if c.closed.Swap(true) {
		return nil
	}
	c.locks.Lock(native.LockAlloc)
	c.pool = nil
	c.locks.Unlock(native.LockAlloc)
	c.locks.Lock(native.LockFreetype)
	clear(c.fonts)
	c.locks.Unlock(native.LockFreetype)
	c.locks.Lock(native.LockGlyphCache)
	clear(c.runs)
	c.locks.Unlock(native.LockGlyphCache)
	return nil
}

func (c *Context) getBuffer() *bytes.Buffer {
	c.locks.Lock(native.LockAlloc)
	defer c.locks.Unlock(native.LockAlloc)
	if n := len(c.pool); n > 0 {
		b := c.pool[n-1]
		c.pool = c.pool[:n-1]
		return b
	}
	return new(bytes.Buffer)
}

func (c *Context) putBuffer(b *bytes.Buffer) {
	b.Reset()
	c.locks.Lock(native.LockAlloc)
	if len(c.pool) < 8 {
		c.pool = append(c.pool, b)
	}
	c.locks.Unlock(native.LockAlloc)
}

// readStream decodes a stream, copying at most limit bytes.
func (c *Context) readStream(v pdf.Value, limit int64) ([]byte, error) {
	if v.Kind() != pdf.Stream {
		return nil, fmt.Errorf("not a stream: %v", v.Kind())
	}
	buf := c.getBuffer()
	defer c.putBuffer(buf)
	rc := v.Reader()
	defer rc.Close()
	if _, err := io.Copy(buf, io.LimitReader(rc, limit)); err != nil {
		return nil, err
	}
	return bytes.Clone(buf.Bytes()), nil
}

func (c *Context) fontProgram(key string, load func() ([]byte, error)) ([]byte, error) {
	c.locks.Lock(native.LockFreetype)
	prog, ok := c.fonts[key]
	c.locks.Unlock(native.LockFreetype)
	if ok {
		return prog, nil
	}
	prog, err := load()
	if err != nil {
		return nil, err
	}
	c.locks.Lock(native.LockFreetype)
	c.fonts[key] = prog
	c.locks.Unlock(native.LockFreetype)
	return prog, nil
}

func (c *Context) cachedRuns(k runKey) ([]native.TextRun, bool) {
	c.locks.Lock(native.LockGlyphCache)
	defer c.locks.Unlock(native.LockGlyphCache)
	runs, ok := c.runs[k]
	return runs, ok
}

func (c *Context) storeRuns(k runKey, runs []native.TextRun) {
	c.locks.Lock(native.LockGlyphCache)
	c.runs[k] = runs
	c.locks.Unlock(native.LockGlyphCache)
}

func (c *Context) dropRuns(doc int64) {
	c.locks.Lock(native.LockGlyphCache)
	for k := range c.runs {
		if k.doc == doc {
			delete(c.runs, k)
		}
	}
	c.locks.Unlock(native.LockGlyphCache)
}

// guard turns parser panics on malformed input into errors.
func guard(stage string, fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%s: malformed document: %v", stage, r)
		}
	}()
	return fn()
}
