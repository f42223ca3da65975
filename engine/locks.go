package engine

import (
	"sync"

	"github.com/wudi/pdfengine/native"
)

// lockAdapter serves the backend's per-category lock callbacks. It never
// touches the engine's own locks.
type lockAdapter struct {
	mutexes [native.LockMax]sync.Mutex
}

func (l *lockAdapter) Lock(kind native.LockKind)   { l.mutexes[kind].Lock() }
func (l *lockAdapter) Unlock(kind native.LockKind) { l.mutexes[kind].Unlock() }
