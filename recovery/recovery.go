package recovery

// Strategy decides how the engine degrades when a single page or document
// structure fails to extract.
type Strategy interface {
	OnError(ctx Context, err error, location Location) Action
}

// Location identifies where an extraction error happened.
type Location struct {
	PageNo    int
	Stage     string
	Component string
}

type Action int

const (
	ActionFail Action = iota
	ActionSkip
	ActionFix
	ActionWarn
)

func (a Action) String() string {
	switch a {
	case ActionFail:
		return "fail"
	case ActionSkip:
		return "skip"
	case ActionFix:
		return "fix"
	case ActionWarn:
		return "warn"
	}
	return "unknown"
}

type Context interface{ Done() <-chan struct{} }
