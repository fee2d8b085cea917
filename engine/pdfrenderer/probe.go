package pdfrenderer

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/drummonds/pdfreader/navigator"
)

// DocumentInfo is the metadata shown next to a document in listings
type DocumentInfo struct {
	Title     string `json:"title"`
	Author    string `json:"author"`
	PageCount int    `json:"pageCount"`
}

// Probe reads document metadata without rendering anything. It is pure Go and
// much cheaper than opening the document in a renderer.
func Probe(src navigator.Source) (info DocumentInfo, err error) {
	// the reader panics on some malformed trailers
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("unable to read PDF metadata: %v", r)
		}
	}()

	var reader *pdf.Reader
	if src.IsPath() {
		f, r, openErr := pdf.Open(src.Path())
		if openErr != nil {
			return DocumentInfo{}, fmt.Errorf("unable to read PDF metadata: %w", openErr)
		}
		defer f.Close()
		reader = r
	} else {
		data := src.Bytes()
		reader, err = pdf.NewReader(bytes.NewReader(data), int64(len(data)))
		if err != nil {
			return DocumentInfo{}, fmt.Errorf("unable to read PDF metadata: %w", err)
		}
	}

	infoDict := reader.Trailer().Key("Info")
	return DocumentInfo{
		Title:     strings.TrimSpace(infoDict.Key("Title").Text()),
		Author:    strings.TrimSpace(infoDict.Key("Author").Text()),
		PageCount: reader.NumPage(),
	}, nil
}

// DisplayName prefers the document title and falls back to the source name
func DisplayName(src navigator.Source, info DocumentInfo) string {
	if info.Title != "" {
		return info.Title
	}
	return src.Name()
}
