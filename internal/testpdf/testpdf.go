// Package testpdf writes small, valid PDF files for tests.
package testpdf

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"testing"
)

// Page size in PDF points used for every generated page
const (
	PageWidth  = 200
	PageHeight = 100
)

// Build returns a PDF with the given number of pages. Each page has a blue
// square in its lower left corner. A non-empty title is written to the Info
// dictionary.
func Build(pages int, title string) []byte {
	var buf bytes.Buffer
	var offsets []int

	obj := func(body string) int {
		offsets = append(offsets, buf.Len())
		n := len(offsets)
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", n, body)
		return n
	}

	buf.WriteString("%PDF-1.4\n")

	// objects 1 (catalog), 2 (pages) and 3 (content) first so kids can refer to 2
	obj("<</Type/Catalog/Pages 2 0 R>>")
	kids := ""
	for i := 0; i < pages; i++ {
		kids += fmt.Sprintf("%d 0 R ", 4+i)
	}
	obj(fmt.Sprintf("<</Type/Pages/Kids[%s]/Count %d>>", kids, pages))
	content := "0 0 1 rg 0 0 20 20 re f"
	obj(fmt.Sprintf("<</Length %d>>\nstream\n%s\nendstream", len(content), content))
	for i := 0; i < pages; i++ {
		obj(fmt.Sprintf("<</Type/Page/Parent 2 0 R/MediaBox[0 0 %d %d]/Contents 3 0 R/Resources<<>>>>",
			PageWidth, PageHeight))
	}
	info := 0
	if title != "" {
		info = obj(fmt.Sprintf("<</Title(%s)/Author(pdfreader tests)>>", title))
	}

	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(offsets)+1)
	fmt.Fprintf(&buf, "%010d %05d f \r\n", 0, 65535)
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d %05d n \r\n", off, 0)
	}
	buf.WriteString("trailer\n")
	if info != 0 {
		fmt.Fprintf(&buf, "<</Size %d/Root 1 0 R/Info %d 0 R>>\n", len(offsets)+1, info)
	} else {
		fmt.Fprintf(&buf, "<</Size %d/Root 1 0 R>>\n", len(offsets)+1)
	}
	fmt.Fprintf(&buf, "startxref\n%d\n%%%%EOF\n", xref)
	return buf.Bytes()
}

// WriteFile writes a generated PDF into the test's temp dir and returns its path.
func WriteFile(t testing.TB, name string, pages int, title string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, Build(pages, title), 0644); err != nil {
		t.Fatalf("Failed to write test PDF: %v", err)
	}
	return path
}
