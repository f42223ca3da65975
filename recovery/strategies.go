package recovery

import (
	"fmt"
	"sync"

	"github.com/wudi/pdfengine/observability"
)

// StrictStrategy stops the remaining extraction steps of a page on the
// first error.
type StrictStrategy struct{}

func NewStrictStrategy() *StrictStrategy {
	return &StrictStrategy{}
}

func (s *StrictStrategy) OnError(ctx Context, err error, location Location) Action {
	return ActionFail
}

// LenientStrategy keeps going, recording every error and logging it.
type LenientStrategy struct {
	Logger observability.Logger

	mu     sync.Mutex
	errors []error
}

func NewLenientStrategy(logger observability.Logger) *LenientStrategy {
	if logger == nil {
		logger = observability.NopLogger{}
	}
	return &LenientStrategy{Logger: logger}
}

func (s *LenientStrategy) OnError(ctx Context, err error, location Location) Action {
	s.mu.Lock()
	s.errors = append(s.errors, fmt.Errorf("[%s] page %d %s: %w", location.Component, location.PageNo, location.Stage, err))
	s.mu.Unlock()
	s.Logger.Warn("recovered extraction error",
		observability.Int("page", location.PageNo),
		observability.String("stage", location.Stage),
		observability.String("component", location.Component),
		observability.Error("error", err))
	return ActionWarn
}

// Errors returns a copy of the recorded errors.
func (s *LenientStrategy) Errors() []error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]error(nil), s.errors...)
}

// SilentStrategy skips failing steps without recording anything.
type SilentStrategy struct{}

func (SilentStrategy) OnError(Context, error, Location) Action { return ActionSkip }
