// Package parsers reads the expense extract and the lookup tables from CSV.
//
// The extract parser is deliberately permissive: it preserves every column of
// every row as raw text, in file order, and leaves interpretation to the
// normalizer. Structural problems with a file (missing, unreadable, no
// header) fail the batch; malformed individual rows are collected as parse
// errors and skipped.
package parsers

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"expense-gst-reconciler/internal/models"
	"expense-gst-reconciler/pkg/errors"
	"expense-gst-reconciler/pkg/logger"
)

// ParseError records one malformed row that was skipped
type ParseError struct {
	Line    int
	Message string
	Err     error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("parse error at line %d: %s: %v", e.Line, e.Message, e.Err)
	}
	return fmt.Sprintf("parse error at line %d: %s", e.Line, e.Message)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// ExtractConfig holds configuration for reading the expense extract
type ExtractConfig struct {
	Delimiter        rune
	TrimLeadingSpace bool
	SkipEmptyRows    bool
}

// DefaultExtractConfig returns a configuration with sensible defaults
func DefaultExtractConfig() *ExtractConfig {
	return &ExtractConfig{
		Delimiter:        ',',
		TrimLeadingSpace: true,
		SkipEmptyRows:    true,
	}
}

// ExtractStats summarizes one extract read
type ExtractStats struct {
	RowsRead    int           `json:"rows_read"`
	RowsSkipped int           `json:"rows_skipped"`
	Errors      []*ParseError `json:"-"`
}

// ExtractParser reads an expense system extract into raw rows
type ExtractParser struct {
	config *ExtractConfig
	logger logger.Logger
}

// NewExtractParser creates an ExtractParser, applying defaults for a nil
// config
func NewExtractParser(config *ExtractConfig) *ExtractParser {
	if config == nil {
		config = DefaultExtractConfig()
	}
	return &ExtractParser{
		config: config,
		logger: logger.WithComponent("extract_parser"),
	}
}

// ParseFile reads the extract at path. The file must have a header row;
// its column names key every RawRow.
func (p *ExtractParser) ParseFile(ctx context.Context, path string) ([]models.RawRow, *ExtractStats, error) {
	file, err := os.Open(path)
	if err != nil {
		code := errors.CodeFileUnreadable
		if os.IsNotExist(err) {
			code = errors.CodeFileNotFound
		}
		return nil, nil, errors.FileError(code, path, err)
	}
	defer file.Close()

	rows, stats, err := p.Parse(ctx, file, path)
	if err != nil {
		return nil, stats, err
	}

	p.logger.WithFields(logger.Fields{
		"file":         path,
		"rows_read":    stats.RowsRead,
		"rows_skipped": stats.RowsSkipped,
	}).Info("Parsed expense extract")

	return rows, stats, nil
}

// Parse reads an extract from r, preserving row order and raw field text.
// The source name only labels errors.
func (p *ExtractParser) Parse(ctx context.Context, r io.Reader, source string) ([]models.RawRow, *ExtractStats, error) {
	reader := csv.NewReader(r)
	reader.Comma = p.config.Delimiter
	reader.TrimLeadingSpace = p.config.TrimLeadingSpace
	reader.FieldsPerRecord = -1

	stats := &ExtractStats{}

	headers, err := reader.Read()
	if err == io.EOF {
		return nil, stats, errors.ParseError(errors.CodeEmptyExtract, source, 0, "", err)
	}
	if err != nil {
		return nil, stats, errors.ParseError(errors.CodeInvalidFormat, source, 1, "unreadable header row", err)
	}
	for i := range headers {
		headers[i] = strings.TrimSpace(headers[i])
	}

	var rows []models.RawRow
	line := 1

	for {
		select {
		case <-ctx.Done():
			return nil, stats, errors.InternalError("extract parsing cancelled", ctx.Err())
		default:
		}

		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++

		if err != nil {
			stats.RowsSkipped++
			stats.Errors = append(stats.Errors, &ParseError{
				Line:    line,
				Message: "malformed CSV row",
				Err:     err,
			})
			continue
		}

		if p.config.SkipEmptyRows && isEmptyRecord(record) {
			stats.RowsSkipped++
			continue
		}

		row := make(models.RawRow, len(headers))
		for i, header := range headers {
			if header == "" {
				continue
			}
			if i < len(record) {
				row[header] = record[i]
			} else {
				row[header] = ""
			}
		}
		rows = append(rows, row)
		stats.RowsRead++
	}

	if len(stats.Errors) > 0 {
		p.logger.WithFields(logger.Fields{
			"errors": len(stats.Errors),
		}).Warn("Skipped malformed extract rows")
	}

	return rows, stats, nil
}

func isEmptyRecord(record []string) bool {
	for _, field := range record {
		if strings.TrimSpace(field) != "" {
			return false
		}
	}
	return true
}
