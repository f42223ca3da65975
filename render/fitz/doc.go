// Package fitz rasterizes pages with MuPDF through go-fitz. It is compiled
// only with the "fitz" build tag and cgo; otherwise New returns
// ErrNotAvailable.
package fitz

import "errors"

var ErrNotAvailable = errors.New("fitz: built without the fitz tag")
