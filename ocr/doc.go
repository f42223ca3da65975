// Package ocr plugs optical character recognition into text extraction.
// Pages whose content stream carries no text are rendered and handed to an
// Engine; the Tesseract engine lives in ocr/tesseract and registers itself
// as the default when linked in.
package ocr
