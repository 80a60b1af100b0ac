// services/ocr.go
package services

import (
	"fmt"
	"image/png"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/gen2brain/go-fitz"
)

// TextExtractor turns a stored invoice document into a raw text blob.
// Implementations are best effort; callers treat failures as an empty
// document and let the operator fill in the blanks.
type TextExtractor interface {
	ExtractText(path string) (string, error)
}

// TesseractExtractor shells out to the tesseract CLI. PDF documents are
// rendered page by page with go-fitz and each page is OCR'd separately,
// with the per-page text concatenated.
type TesseractExtractor struct {
	Languages string // tesseract language spec, e.g. "fra+eng"
}

func NewTesseractExtractor() *TesseractExtractor {
	languages := os.Getenv("TESSERACT_LANG")
	if languages == "" {
		languages = "fra+eng"
	}
	return &TesseractExtractor{Languages: languages}
}

func (e *TesseractExtractor) ExtractText(path string) (string, error) {
	if strings.EqualFold(filepath.Ext(path), ".pdf") {
		return e.extractFromPDF(path)
	}
	return e.runTesseract(path)
}

func (e *TesseractExtractor) runTesseract(imagePath string) (string, error) {
	out, err := exec.Command("tesseract", imagePath, "stdout", "-l", e.Languages).Output()
	if err != nil {
		return "", fmt.Errorf("running tesseract on %s: %w", filepath.Base(imagePath), err)
	}
	return string(out), nil
}

func (e *TesseractExtractor) extractFromPDF(path string) (string, error) {
	doc, err := fitz.New(path)
	if err != nil {
		return "", fmt.Errorf("opening PDF: %w", err)
	}
	defer doc.Close()

	var text strings.Builder
	for page := 0; page < doc.NumPage(); page++ {
		img, err := doc.Image(page)
		if err != nil {
			return "", fmt.Errorf("rendering PDF page %d: %w", page+1, err)
		}
		tmp, err := os.CreateTemp("", "invoice-page-*.png")
		if err != nil {
			return "", err
		}
		if err := png.Encode(tmp, img); err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
			return "", fmt.Errorf("encoding PDF page %d: %w", page+1, err)
		}
		tmp.Close()
		pageText, err := e.runTesseract(tmp.Name())
		os.Remove(tmp.Name())
		if err != nil {
			return "", err
		}
		text.WriteString(pageText)
		text.WriteString("\n")
	}
	return text.String(), nil
}
