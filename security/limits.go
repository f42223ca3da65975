package security

import "time"

// Limits caps the work a single document can make the engine do.
type Limits struct {
	// Maximum size of a document loaded into memory. Default: 512 MB.
	MaxDocumentSize int64

	// Maximum outline nesting depth. Default: 64.
	MaxOutlineDepth int

	// Maximum number of outline and attachment items. Default: 100,000.
	MaxOutlineItems int

	// Maximum links, comments and images extracted per page. Default: 10,000.
	MaxLinksPerPage    int
	MaxCommentsPerPage int
	MaxImagesPerPage   int

	// Maximum heuristic links per page. Default: 2,000.
	MaxAutoLinksPerPage int

	// Maximum Form XObject nesting followed while locating images. Default: 20.
	MaxXObjectDepth int

	// Maximum passwords requested from the prompt per load. Default: 3.
	MaxPasswordAttempts int

	// Maximum page label ranges read from /PageLabels. Default: 10,000.
	MaxLabelRanges int

	// Maximum page label start value (/St). Default: 1,000,000.
	MaxLabelNumber int

	// Maximum time a JavaScript link action may run. Default: 250ms.
	MaxScriptTime time.Duration
}

// DefaultLimits returns a Limits struct with safe default values.
func DefaultLimits() Limits {
	return Limits{
		MaxDocumentSize:     512 * 1024 * 1024, // 512 MB
		MaxOutlineDepth:     64,
		MaxOutlineItems:     100000,
		MaxLinksPerPage:     10000,
		MaxCommentsPerPage:  10000,
		MaxImagesPerPage:    10000,
		MaxAutoLinksPerPage: 2000,
		MaxXObjectDepth:     20,
		MaxPasswordAttempts: 3,
		MaxLabelRanges:      10000,
		MaxLabelNumber:      1000000,
		MaxScriptTime:       250 * time.Millisecond,
	}
}

// Merge returns l with every zero field taken from DefaultLimits.
func (l Limits) Merge() Limits {
	d := DefaultLimits()
	pick := func(v *int, def int) {
		if *v <= 0 {
			*v = def
		}
	}
	if l.MaxDocumentSize <= 0 {
		l.MaxDocumentSize = d.MaxDocumentSize
	}
	pick(&l.MaxOutlineDepth, d.MaxOutlineDepth)
	pick(&l.MaxOutlineItems, d.MaxOutlineItems)
	pick(&l.MaxLinksPerPage, d.MaxLinksPerPage)
	pick(&l.MaxCommentsPerPage, d.MaxCommentsPerPage)
	pick(&l.MaxImagesPerPage, d.MaxImagesPerPage)
	pick(&l.MaxAutoLinksPerPage, d.MaxAutoLinksPerPage)
	pick(&l.MaxXObjectDepth, d.MaxXObjectDepth)
	pick(&l.MaxPasswordAttempts, d.MaxPasswordAttempts)
	pick(&l.MaxLabelRanges, d.MaxLabelRanges)
	pick(&l.MaxLabelNumber, d.MaxLabelNumber)
	if l.MaxScriptTime <= 0 {
		l.MaxScriptTime = d.MaxScriptTime
	}
	return l
}
