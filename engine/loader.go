package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/blake2b"

	"github.com/wudi/pdfengine/labels"
	"github.com/wudi/pdfengine/native"
	"github.com/wudi/pdfengine/observability"
	"github.com/wudi/pdfengine/recovery"
	"github.com/wudi/pdfengine/scripting"
	"github.com/wudi/pdfengine/security"
)

// LoadFile opens the document at path.
func LoadFile(ctx context.Context, path string, opts ...Option) (*Engine, error) {
	o := buildOptions(opts)
	st, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("engine: %w", err)
	}
	if st.Size() > o.limits.MaxDocumentSize {
		return nil, parseFailure("read", fmt.Errorf("%s is %d bytes, limit %d", path, st.Size(), o.limits.MaxDocumentSize))
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("engine: %w", err)
	}
	return loadFromStream(ctx, data, path, o)
}

// LoadStream reads the whole document from r.
func LoadStream(ctx context.Context, r io.Reader, opts ...Option) (*Engine, error) {
	o := buildOptions(opts)
	data, err := io.ReadAll(io.LimitReader(r, o.limits.MaxDocumentSize+1))
	if err != nil {
		return nil, fmt.Errorf("engine: read stream: %w", err)
	}
	if int64(len(data)) > o.limits.MaxDocumentSize {
		return nil, parseFailure("read", fmt.Errorf("stream exceeds %d bytes", o.limits.MaxDocumentSize))
	}
	return loadFromStream(ctx, data, "", o)
}

func loadFromStream(ctx context.Context, data []byte, fileName string, o options) (*Engine, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	id := uuid.New()
	e := &Engine{
		id:       id,
		fileName: fileName,
		data:     data,
		opts:     o,
		log:      o.logger.With(observability.String("engine", id.String())),
		locks:    &lockAdapter{},
	}
	ctx, span := o.tracer.StartSpan(ctx, observability.SpanLoad)
	defer span.Finish()
	start := time.Now()

	if err := e.open(ctx); err != nil {
		span.SetError(err)
		e.release()
		e.log.Warn("load failed", observability.String("file", filepath.Base(fileName)), observability.Error("error", err))
		return nil, err
	}
	elapsed := time.Since(start)
	span.SetTag(observability.MetricLoadTime, elapsed)
	span.SetTag(observability.MetricPageCount, len(e.pages))
	e.log.Info("document loaded",
		observability.String("file", filepath.Base(fileName)),
		observability.String("backend", o.library.Name()),
		observability.Int("pages", len(e.pages)),
		observability.Duration("elapsed", elapsed))
	return e, nil
}

func (e *Engine) open(ctx context.Context) error {
	nctx, err := e.opts.library.NewContext(e.locks)
	if err != nil {
		return parseFailure("context", err)
	}
	e.nctx = nctx
	doc, err := nctx.Open(e.data)
	if err != nil {
		return parseFailure("open", err)
	}
	e.doc = doc
	if doc.NeedsPassword() {
		if err := e.authenticate(); err != nil {
			return err
		}
	}
	e.ctxMu.Lock()
	defer e.ctxMu.Unlock()
	return e.finishLoading(ctx)
}

// authenticate asks the prompt for passwords until one unlocks the
// document, the prompt declines or the attempts run out.
func (e *Engine) authenticate() error {
	prompt := e.opts.prompt
	if prompt == nil {
		return fmt.Errorf("%w: no password prompt for encrypted document", ErrAuthenticationCancelled)
	}
	for attempt := 1; attempt <= e.opts.limits.MaxPasswordAttempts; attempt++ {
		pw, ok := prompt.Password(security.PasswordRequest{
			FileName: e.fileName,
			Attempt:  attempt,
			Retry:    attempt > 1,
		})
		if !ok {
			if attempt > 1 {
				return fmt.Errorf("%w: %d passwords rejected", ErrAuthenticationFailed, attempt-1)
			}
			return ErrAuthenticationCancelled
		}
		if e.doc.Authenticate(pw) {
			e.password = &pw
			return nil
		}
		e.log.Debug("password rejected", observability.Int("attempt", attempt))
	}
	return fmt.Errorf("%w: %d passwords rejected", ErrAuthenticationFailed, e.opts.limits.MaxPasswordAttempts)
}

// finishLoading builds the page table and the document level state. The
// caller holds ctxMu.
func (e *Engine) finishLoading(ctx context.Context) error {
	count, err := e.doc.PageCount()
	if err != nil {
		return parseFailure("page count", err)
	}
	if count <= 0 {
		return parseFailure("page count", errors.New("document has no pages"))
	}
	pages := make([]*pageRecord, count)
	for i := range pages {
		p, err := e.doc.LoadPage(i + 1)
		if err != nil {
			for _, done := range pages[:i] {
				done.page.Close()
			}
			return parseFailure(fmt.Sprintf("page %d", i+1), err)
		}
		pages[i] = &pageRecord{no: i + 1, page: p, mediaBox: p.Bounds(), rotation: p.Rotation()}
	}
	e.pagesMu.Lock()
	e.pages = pages
	e.pagesMu.Unlock()

	if e.outline, err = e.doc.Outline(); err != nil {
		if err := e.documentError(ctx, "outline", err); err != nil {
			return err
		}
	}
	if e.attachments, err = e.doc.Attachments(); err != nil {
		if err := e.documentError(ctx, "attachments", err); err != nil {
			return err
		}
	}
	ranges, err := e.doc.PageLabels()
	if err != nil {
		if err := e.documentError(ctx, "page labels", err); err != nil {
			return err
		}
	}
	if max := e.opts.limits.MaxLabelRanges; len(ranges) > max {
		ranges = ranges[:max]
	}
	clamped := make([]native.LabelRange, len(ranges))
	for i, r := range ranges {
		r.First = min(r.First, e.opts.limits.MaxLabelNumber)
		clamped[i] = r
	}
	ranges = clamped
	e.labels = labels.Build(ranges, count)

	p, encrypted := e.doc.Permissions()
	e.perms = security.AllPermissions()
	if encrypted {
		e.perms = security.PermissionsFromP(p)
	}
	e.fingerprint = blake2b.Sum256(e.data)
	if e.opts.scripting {
		e.scripts = &scripting.Translator{
			Timeout: e.opts.scriptTimeout,
			Alert: func(msg string) {
				e.log.Info("script alert", observability.String("message", msg))
			},
		}
	}
	return nil
}

// documentError lets the recovery strategy decide whether a broken
// document level structure fails the load.
func (e *Engine) documentError(ctx context.Context, stage string, err error) error {
	e.log.Warn("document structure unreadable", observability.String("stage", stage), observability.Error("error", err))
	loc := recovery.Location{Stage: stage, Component: "loader"}
	if e.opts.strategy.OnError(ctx, err, loc) == recovery.ActionFail {
		return parseFailure(stage, err)
	}
	return nil
}

// release frees native resources after a failed load or on Close.
func (e *Engine) release() {
	e.pagesMu.Lock()
	pages := e.pages
	e.pages = nil
	e.pagesMu.Unlock()
	for _, rec := range pages {
		if rec.page != nil {
			rec.page.Close()
		}
	}
	if e.renderer != nil {
		e.renderer.Close()
		e.renderer = nil
	}
	if e.doc != nil {
		e.doc.Close()
		e.doc = nil
	}
	if e.nctx != nil {
		e.nctx.Close()
		e.nctx = nil
	}
}

// Clone opens an independent engine over the same bytes with its own
// backend context, locks and page table.
func (e *Engine) Clone(ctx context.Context) (*Engine, error) {
	if e.closed.Load() {
		return nil, ErrClosed
	}
	o := e.opts
	if e.password != nil {
		o.prompt = security.StaticPasswords(*e.password)
	}
	return loadFromStream(ctx, e.data, e.fileName, o)
}
