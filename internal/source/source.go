package source

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gen2brain/go-fitz"
)

// Source yields a ready-made narrative script instead of asking a provider
type Source interface {
	Script() (string, error)
	Close() error
}

// Open picks a source by file extension.
func Open(path string) (Source, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		return NewFitzPDFSource(path)
	case ".txt", ".md", "":
		return NewTextSource(path), nil
	default:
		return nil, fmt.Errorf("unsupported script format: %s", filepath.Ext(path))
	}
}

// TextSource reads a plain text or markdown script
type TextSource struct {
	path string
}

func NewTextSource(path string) *TextSource {
	return &TextSource{path: path}
}

func (t *TextSource) Script() (string, error) {
	data, err := os.ReadFile(t.path)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func (t *TextSource) Close() error {
	return nil
}

// FitzPDFSource extracts a script from a PDF, one section per page
type FitzPDFSource struct {
	doc  *fitz.Document
	path string
}

func NewFitzPDFSource(path string) (*FitzPDFSource, error) {
	doc, err := fitz.New(path)
	if err != nil {
		return nil, err
	}
	return &FitzPDFSource{doc: doc, path: path}, nil
}

func (f *FitzPDFSource) PageCount() int {
	return f.doc.NumPage()
}

func (f *FitzPDFSource) Script() (string, error) {
	var sections []string
	for i := 0; i < f.doc.NumPage(); i++ {
		text, err := f.doc.Text(i)
		if err != nil {
			return "", fmt.Errorf("page %d: %w", i+1, err)
		}
		if text = strings.TrimSpace(text); text != "" {
			sections = append(sections, text)
		}
	}
	if len(sections) == 0 {
		return "", fmt.Errorf("no extractable text in %s", filepath.Base(f.path))
	}
	return strings.Join(sections, "\n\n"), nil
}

func (f *FitzPDFSource) Close() error {
	return f.doc.Close()
}
