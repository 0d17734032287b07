package catalog

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/mmcdole/libdesk/internal/adapter"
	"github.com/mmcdole/libdesk/internal/domain"
)

type slowAdder struct {
	mu       sync.Mutex
	inFlight int
	peak     int
	added    []string
	reject   string
}

func (a *slowAdder) AddBook(ctx context.Context, b domain.NewBook) error {
	a.mu.Lock()
	a.inFlight++
	a.peak = max(a.peak, a.inFlight)
	a.mu.Unlock()

	time.Sleep(5 * time.Millisecond)

	a.mu.Lock()
	defer a.mu.Unlock()
	a.inFlight--
	if b.Title == a.reject {
		return domain.ErrConflict
	}
	a.added = append(a.added, b.Title)
	return nil
}

const sample = `title,author,isbn,language
Dune,Frank Herbert,9780441013593,
Emma,Jane Austen,,French
# not a book
,Nobody,,
Ulysses,James Joyce
`

func TestParse(t *testing.T) {
	rows, err := Parse(strings.NewReader(sample))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(rows) != 4 {
		t.Fatalf("got %d rows, want 4", len(rows))
	}
	if rows[0].Line != 2 || rows[0].Book.Language != domain.DefaultLanguage {
		t.Fatalf("row 0 = %+v", rows[0])
	}
	if rows[1].Book.Language != "French" {
		t.Fatalf("row 1 language = %q", rows[1].Book.Language)
	}
	if !errors.Is(rows[2].Err, domain.ErrValidation) || rows[2].Line != 5 {
		t.Fatalf("row 2 = %+v", rows[2])
	}
	if rows[3].Err != nil || rows[3].Book.Author != "James Joyce" {
		t.Fatalf("row 3 = %+v", rows[3])
	}
}

func TestParseWithoutHeader(t *testing.T) {
	rows, err := Parse(strings.NewReader("Dune,Frank Herbert\n"))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(rows) != 1 || rows[0].Book.Title != "Dune" {
		t.Fatalf("rows = %+v", rows)
	}
}

func TestImportBoundsConcurrencyAndReportsFailures(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 20; i++ {
		b.WriteString("Book " + string(rune('A'+i)) + ",Author\n")
	}
	b.WriteString(",Missing Title\n")

	adder := &slowAdder{reject: "Book C"}
	im := NewImporter(adder, 3, adapter.NullLogger())

	res, err := im.Import(context.Background(), strings.NewReader(b.String()))
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if res.Added != 19 || res.Failed != 2 {
		t.Fatalf("added=%d failed=%d, want 19/2", res.Added, res.Failed)
	}
	if adder.peak > 3 {
		t.Fatalf("peak concurrency %d exceeds 3 workers", adder.peak)
	}
	for _, row := range res.Rows {
		if row.Book.Title == "Book C" && !errors.Is(row.Err, domain.ErrConflict) {
			t.Fatalf("Book C error = %v", row.Err)
		}
	}
}

func TestImportCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	adder := &slowAdder{}
	res, err := NewImporter(adder, 0, adapter.NullLogger()).Import(ctx, strings.NewReader("Dune,Frank Herbert\n"))
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if res.Failed != 1 || len(adder.added) != 0 {
		t.Fatalf("cancelled import added %v", adder.added)
	}
}

func TestImportBadCSV(t *testing.T) {
	_, err := NewImporter(&slowAdder{}, 1, adapter.NullLogger()).Import(context.Background(), strings.NewReader("Dune,Frank \"The\" Herbert\n"))
	if err == nil {
		t.Fatal("expected csv error")
	}
}
