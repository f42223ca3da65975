//go:build tesseract

package main

// Registers tesseract as the default OCR engine.
import _ "github.com/wudi/pdfengine/ocr/tesseract"
