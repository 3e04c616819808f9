package ingest

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"tara-tutor-be/internal/pkg/logger"
	"tara-tutor-be/pkg/store"
	"tara-tutor-be/pkg/utils"

	"github.com/google/uuid"
)

// Parser converts uploaded course material into retrieval fragments.
type Parser struct {
	splitter *utils.TextSplitter
	pdf      PDFExtractor
	logger   logger.ILogger
}

func NewParser(chunkSize, overlap int, pdf PDFExtractor, log logger.ILogger) *Parser {
	if pdf == nil {
		pdf = NewPDFToText()
	}
	return &Parser{
		splitter: utils.NewTextSplitter(chunkSize, overlap),
		pdf:      pdf,
		logger:   log,
	}
}

// Supported reports whether the extension of fileName can be ingested.
func Supported(fileName string) bool {
	switch strings.ToLower(filepath.Ext(fileName)) {
	case ".pdf", ".txt", ".md", ".csv", ".py":
		return true
	}
	return false
}

// Parse extracts, normalizes and chunks a file. Every fragment carries source = file name.
func (p *Parser) Parse(ctx context.Context, fileName string, data []byte) ([]store.Fragment, error) {
	info := Describe(fileName)
	if !Supported(info.FileName) {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFileType, info.FileType)
	}

	docs, err := p.extract(ctx, info, data)
	if err != nil {
		return nil, err
	}

	var fragments []store.Fragment
	for docIndex, doc := range docs {
		for _, chunk := range p.splitter.Split(doc) {
			meta := map[string]interface{}{
				"source":        info.FileName,
				"file_type":     info.FileType,
				"material_type": string(info.MaterialType),
				"chunk_size":    len(chunk),
			}
			if info.FileType == ".csv" {
				meta["row"] = docIndex
			}
			fragments = append(fragments, store.Fragment{
				ID:         uuid.NewString(),
				Source:     info.FileName,
				ChunkIndex: len(fragments),
				Content:    chunk,
				Metadata:   meta,
			})
		}
	}

	if len(fragments) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmptyDocument, info.FileName)
	}

	p.logger.Info("Ingest", "File chunked", map[string]interface{}{
		"file":          info.FileName,
		"material_type": string(info.MaterialType),
		"documents":     len(docs),
		"fragments":     len(fragments),
	})
	return fragments, nil
}

func (p *Parser) extract(ctx context.Context, info FileInfo, data []byte) ([]string, error) {
	switch info.FileType {
	case ".pdf":
		text, err := p.pdf.Extract(ctx, data)
		if err != nil {
			return nil, fmt.Errorf("extract pdf: %w", err)
		}
		return []string{NormalizeLayout(text)}, nil
	case ".py":
		return []string{FormatTestCases(decodeText(data))}, nil
	case ".csv":
		return CSVRows([]byte(decodeText(data)))
	default: // .txt, .md
		return []string{decodeText(data)}, nil
	}
}
