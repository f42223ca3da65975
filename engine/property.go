package engine

import (
	"context"
)

// Property names a document property.
type Property string

const (
	PropTitle        Property = "Title"
	PropAuthor       Property = "Author"
	PropSubject      Property = "Subject"
	PropKeywords     Property = "Keywords"
	PropCreator      Property = "Creator"
	PropProducer     Property = "Producer"
	PropCreationDate Property = "CreationDate"
	PropModDate      Property = "ModDate"
	PropPdfVersion   Property = "PdfVersion"
	PropFontList     Property = "FontList"
)

// Properties lists every property in display order.
var Properties = []Property{
	PropTitle, PropAuthor, PropSubject, PropKeywords, PropCreator,
	PropProducer, PropCreationDate, PropModDate, PropPdfVersion, PropFontList,
}

// Property returns a metadata value as stored in the document. FontList is
// one font per line; building it scans every page and stops when ctx is done.
func (e *Engine) Property(ctx context.Context, p Property) (string, bool) {
	if p == PropFontList {
		list, err := e.FontList(ctx)
		if err != nil || len(list) == 0 {
			return "", false
		}
		return list.String(), true
	}
	if err := e.lockContext(); err != nil {
		return "", false
	}
	defer e.ctxMu.Unlock()
	v, ok := e.doc.Metadata(string(p))
	if !ok || v == "" {
		return "", false
	}
	return v, true
}
