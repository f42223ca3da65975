package engine

import (
	"time"

	"github.com/wudi/pdfengine/native"
	"github.com/wudi/pdfengine/native/pdfreader"
	"github.com/wudi/pdfengine/observability"
	"github.com/wudi/pdfengine/ocr"
	"github.com/wudi/pdfengine/recovery"
	"github.com/wudi/pdfengine/render"
	"github.com/wudi/pdfengine/security"
)

type options struct {
	library  native.Library
	renderer render.Factory
	prompt   security.PasswordPrompt
	limits   security.Limits
	logger   observability.Logger
	tracer   observability.Tracer
	strategy recovery.Strategy

	ocr          ocr.Engine
	ocrLanguages []string
	ocrZoom      float64

	scripting     bool
	scriptTimeout time.Duration
}

type Option func(*options)

// WithLibrary selects the parsing backend. The default is pdfreader.
func WithLibrary(lib native.Library) Option {
	return func(o *options) { o.library = lib }
}

// WithRenderer selects the rasterizer. The default renders blank pages.
func WithRenderer(f render.Factory) Option {
	return func(o *options) { o.renderer = f }
}

// WithPasswordPrompt is consulted when the document is encrypted.
func WithPasswordPrompt(p security.PasswordPrompt) Option {
	return func(o *options) { o.prompt = p }
}

func WithPassword(password string) Option {
	return WithPasswordPrompt(security.StaticPasswords(password))
}

// WithLimits overrides resource limits; zero fields keep their defaults.
func WithLimits(l security.Limits) Option {
	return func(o *options) { o.limits = l.Merge() }
}

func WithLogger(l observability.Logger) Option {
	return func(o *options) { o.logger = l }
}

func WithTracer(t observability.Tracer) Option {
	return func(o *options) { o.tracer = t }
}

// WithRecoveryStrategy decides what a failed extraction step does to the
// rest of the page. The default logs and continues.
func WithRecoveryStrategy(s recovery.Strategy) Option {
	return func(o *options) { o.strategy = s }
}

// WithOCR enables recognition for pages without a text layer. zoom is the
// render scale used for recognition; zero means 300 dpi.
func WithOCR(e ocr.Engine, zoom float64, languages ...string) Option {
	return func(o *options) {
		o.ocr = e
		o.ocrZoom = zoom
		o.ocrLanguages = languages
	}
}

// WithScripting runs JavaScript link actions to find their destination.
// timeout zero uses the limits' MaxScriptTime.
func WithScripting(enabled bool, timeout time.Duration) Option {
	return func(o *options) {
		o.scripting = enabled
		o.scriptTimeout = timeout
	}
}

func buildOptions(opts []Option) options {
	o := options{limits: security.DefaultLimits()}
	for _, opt := range opts {
		opt(&o)
	}
	if o.library == nil {
		o.library = pdfreader.New(pdfreader.WithLimits(o.limits))
	}
	if o.renderer == nil {
		o.renderer = render.NewBlank
	}
	if o.logger == nil {
		o.logger = observability.Default()
	}
	if o.tracer == nil {
		o.tracer = observability.NopTracer()
	}
	if o.strategy == nil {
		o.strategy = recovery.NewLenientStrategy(o.logger)
	}
	if o.ocrZoom <= 0 {
		o.ocrZoom = 300.0 / 72.0
	}
	if o.scriptTimeout <= 0 {
		o.scriptTimeout = o.limits.MaxScriptTime
	}
	return o
}
