package scripting

import (
	"context"
	"strings"
	"time"

	"github.com/wudi/pdfengine/elements"
)

// Translator turns link action scripts into destinations.
type Translator struct {
	// Timeout bounds each script; zero means no bound beyond ctx.
	Timeout time.Duration
	// Alert receives app.alert messages.
	Alert func(message string)
	// New creates the engine for each script. Defaults to NewEngine.
	New func() Engine
}

// recorder keeps the first navigation request made by a script.
type recorder struct {
	pageCount int
	current   int
	alert     func(string)
	dest      *elements.Destination
}

func (r *recorder) PageCount() int   { return r.pageCount }
func (r *recorder) CurrentPage() int { return r.current }

func (r *recorder) GoToPage(index int) {
	if index < 0 || index >= r.pageCount {
		return
	}
	r.current = index
	r.set(&elements.Destination{Kind: elements.DestScrollTo, PageNo: index + 1})
}

func (r *recorder) LaunchURL(url string) {
	if strings.TrimSpace(url) == "" {
		return
	}
	r.set(&elements.Destination{Kind: elements.DestLaunchURL, Value: url})
}

func (r *recorder) ExecMenuItem(name string) {
	if name == "FullScreenMode" {
		name = "FullScreen"
	}
	if kind := elements.NamedAction(name); kind != elements.DestNone {
		r.set(&elements.Destination{Kind: kind, Value: name})
	}
}

func (r *recorder) Alert(message string) {
	if r.alert != nil {
		r.alert(message)
	}
}

func (r *recorder) set(d *elements.Destination) {
	if r.dest == nil {
		r.dest = d
	}
}

// Translate runs script as if activated on the 1-based page pageNo and
// returns the destination it requested, or nil when it only computed
// values. Script errors are returned with whatever the script requested
// before failing.
func (t *Translator) Translate(ctx context.Context, script string, pageNo, pageCount int) (*elements.Destination, error) {
	if t.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.Timeout)
		defer cancel()
	}
	newEngine := t.New
	if newEngine == nil {
		newEngine = func() Engine { return NewEngine() }
	}
	eng := newEngine()
	rec := &recorder{pageCount: pageCount, current: pageNo - 1, alert: t.Alert}
	if err := eng.RegisterDOM(rec); err != nil {
		return nil, err
	}
	_, err := eng.Execute(ctx, script)
	return rec.dest, err
}
