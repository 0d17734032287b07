// Package catalog bulk-loads books from CSV.
package catalog

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/gammazero/workerpool"
	"github.com/mmcdole/libdesk/internal/domain"
)

// DefaultWorkers bounds concurrent AddBook requests
const DefaultWorkers = 4

// Adder creates one catalog entry (loan.Engine or api.Client)
type Adder interface {
	AddBook(ctx context.Context, book domain.NewBook) error
}

// Row is one parsed CSV record and its outcome
type Row struct {
	Line int
	Book domain.NewBook
	Err  error
}

// Result summarizes an import
type Result struct {
	Rows   []Row
	Added  int
	Failed int
}

// Importer reads title,author,isbn,language rows and adds them through a
// bounded worker pool
type Importer struct {
	adder   Adder
	workers int
	logger  *slog.Logger
}

// NewImporter creates an importer. workers <= 0 means DefaultWorkers.
func NewImporter(adder Adder, workers int, logger *slog.Logger) *Importer {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Importer{adder: adder, workers: workers, logger: logger}
}

// Parse reads every record. A first row starting with "title" is treated
// as a header. Rows failing validation carry their error and are never
// submitted.
func Parse(r io.Reader) ([]Row, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	cr.Comment = '#'

	var rows []Row
	first := true
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv: %w", err)
		}
		line, _ := cr.FieldPos(0)

		if first {
			first = false
			if strings.EqualFold(strings.TrimSpace(rec[0]), "title") {
				continue
			}
		}

		book := domain.NewBook{
			Title:    field(rec, 0),
			Author:   field(rec, 1),
			ISBN:     field(rec, 2),
			Language: field(rec, 3),
		}.Normalize()
		rows = append(rows, Row{Line: line, Book: book, Err: book.Validate()})
	}
	return rows, nil
}

func field(rec []string, i int) string {
	if i < len(rec) {
		return rec[i]
	}
	return ""
}

// Import parses r and adds every valid row. Per-row failures are reported
// in the result; only an unreadable file fails the whole import.
func (im *Importer) Import(ctx context.Context, r io.Reader) (Result, error) {
	rows, err := Parse(r)
	if err != nil {
		return Result{}, err
	}

	wp := workerpool.New(im.workers)
	for i := range rows {
		if rows[i].Err != nil {
			continue
		}
		row := &rows[i]
		wp.Submit(func() {
			if err := ctx.Err(); err != nil {
				row.Err = err
				return
			}
			row.Err = im.adder.AddBook(ctx, row.Book)
		})
	}
	wp.StopWait()

	res := Result{Rows: rows}
	for _, row := range rows {
		if row.Err != nil {
			res.Failed++
			im.logger.Warn("import row failed", "line", row.Line, "title", row.Book.Title, "error", row.Err)
			continue
		}
		res.Added++
	}
	im.logger.Info("catalog import finished", "added", res.Added, "failed", res.Failed)
	return res, nil
}
