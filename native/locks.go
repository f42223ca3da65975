package native

// LockKind names a backend resource category. The set is owned by the
// backend; callers size their lock tables with LockMax.
type LockKind int

const (
	LockAlloc LockKind = iota
	LockFreetype
	LockGlyphCache
	LockMax
)

func (k LockKind) String() string {
	switch k {
	case LockAlloc:
		return "alloc"
	case LockFreetype:
		return "freetype"
	case LockGlyphCache:
		return "glyphcache"
	}
	return "unknown"
}

// Locks is registered with a Context at creation. Implementations must not
// allocate, log or take any other lock.
type Locks interface {
	Lock(kind LockKind)
	Unlock(kind LockKind)
}
