// Package scripting evaluates the JavaScript attached to link actions in a
// restricted sandbox. Scripts only see a navigation DOM; the first
// navigation request they make becomes the link destination.
package scripting

import (
	"context"
)

// Engine runs scripts against a registered DOM.
type Engine interface {
	Execute(ctx context.Context, script string) (any, error)
	RegisterDOM(dom ViewerDOM) error
}

// ViewerDOM is the viewer surface exposed to scripts. Page indexes are
// 0-based as in the Acrobat JavaScript API.
type ViewerDOM interface {
	PageCount() int
	CurrentPage() int
	GoToPage(index int)
	LaunchURL(url string)
	ExecMenuItem(name string)
	Alert(message string)
}
