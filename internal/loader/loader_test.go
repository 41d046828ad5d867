package loader

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/crimelens/crimelens-engine/internal/cache"
)

const sampleCSV = `Latitude,Longitude,Crime Type,Date/Time
41.0100,28.9600,theft,2024-03-01 10:00:00
41.0110,28.9610,assault,2024-03-02 23:15:00
41.0120,28.9620,theft,2024-03-03
`

func TestLoadCSV(t *testing.T) {
	l := New(nil, nil, 0)

	dataset, err := l.Load(context.Background(), "incidents.csv", strings.NewReader(sampleCSV))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if len(dataset.Observations) != 3 {
		t.Fatalf("got %d observations, want 3", len(dataset.Observations))
	}
	if dataset.Dropped != 0 {
		t.Fatalf("got %d dropped rows, want 0", dataset.Dropped)
	}
	if dataset.Hash == "" {
		t.Fatal("dataset hash is empty")
	}

	first := dataset.Observations[0]
	if first.Category != "theft" {
		t.Fatalf("first category = %q, want theft", first.Category)
	}
	want := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	if !first.Timestamp.Equal(want) {
		t.Fatalf("first timestamp = %v, want %v", first.Timestamp, want)
	}
}

func TestLoadNormalisesHeaders(t *testing.T) {
	csv := "LATITUDE,Longitude,CRIME TYPE,Date/Time\n41.0,28.9,theft,2024-03-01\n"
	l := New(nil, nil, 0)

	dataset, err := l.Load(context.Background(), "upper.csv", strings.NewReader(csv))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if len(dataset.Observations) != 1 {
		t.Fatalf("got %d observations, want 1", len(dataset.Observations))
	}
}

func TestLoadMissingColumns(t *testing.T) {
	csv := "Latitude,Crime Type\n41.0,theft\n"
	l := New(nil, nil, 0)

	_, err := l.Load(context.Background(), "partial.csv", strings.NewReader(csv))
	if !errors.Is(err, ErrMissingColumns) {
		t.Fatalf("Load error = %v, want ErrMissingColumns", err)
	}
	if !strings.Contains(err.Error(), "longitude") || !strings.Contains(err.Error(), "date/time") {
		t.Fatalf("error does not name the missing columns: %v", err)
	}
}

func TestLoadDropsBadRows(t *testing.T) {
	csv := sampleCSV +
		"not-a-number,28.96,theft,2024-03-04\n" +
		"41.01,28.96,theft,yesterday\n" +
		"41.01,28.96\n"
	l := New(nil, nil, 0)

	dataset, err := l.Load(context.Background(), "dirty.csv", strings.NewReader(csv))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if len(dataset.Observations) != 3 {
		t.Fatalf("got %d observations, want 3", len(dataset.Observations))
	}
	if dataset.Dropped != 3 {
		t.Fatalf("got %d dropped rows, want 3", dataset.Dropped)
	}
}

func TestLoadAllRowsDropped(t *testing.T) {
	csv := "Latitude,Longitude,Crime Type,Date/Time\nbad,bad,theft,bad\n"
	l := New(nil, nil, 0)

	_, err := l.Load(context.Background(), "empty.csv", strings.NewReader(csv))
	if !errors.Is(err, ErrEmptyDataset) {
		t.Fatalf("Load error = %v, want ErrEmptyDataset", err)
	}
}

func TestLoadUnsupportedFormat(t *testing.T) {
	l := New(nil, nil, 0)

	_, err := l.Load(context.Background(), "incidents.pdf", strings.NewReader("x"))
	if !errors.Is(err, ErrUnsupportedFormat) {
		t.Fatalf("Load error = %v, want ErrUnsupportedFormat", err)
	}
}

func TestLoadWorkbook(t *testing.T) {
	book := excelize.NewFile()
	sheet := book.GetSheetName(0)
	rows := [][]interface{}{
		{"Latitude", "Longitude", "Crime Type", "Date/Time"},
		{"41.0100", "28.9600", "burglary", "2024-03-01 09:30:00"},
		{"41.0200", "28.9700", "theft", "2024-03-02 18:00:00"},
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			t.Fatalf("cell name: %v", err)
		}
		if err := book.SetSheetRow(sheet, cell, &row); err != nil {
			t.Fatalf("set sheet row: %v", err)
		}
	}
	var buf bytes.Buffer
	if err := book.Write(&buf); err != nil {
		t.Fatalf("write workbook: %v", err)
	}

	l := New(nil, nil, 0)
	dataset, err := l.Load(context.Background(), "incidents.xlsx", &buf)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if len(dataset.Observations) != 2 {
		t.Fatalf("got %d observations, want 2", len(dataset.Observations))
	}
	if dataset.Observations[0].Category != "burglary" {
		t.Fatalf("first category = %q, want burglary", dataset.Observations[0].Category)
	}
}

// countingProvider wraps MemoryProvider to observe hit behaviour.
type countingProvider struct {
	*cache.MemoryProvider
	sets int
}

func (p *countingProvider) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	p.sets++
	return p.MemoryProvider.Set(ctx, key, value, ttl)
}

func TestLoadMemoizesByContentHash(t *testing.T) {
	provider := &countingProvider{MemoryProvider: cache.NewMemoryProvider()}
	l := New(nil, provider, time.Minute)

	first, err := l.Load(context.Background(), "a.csv", strings.NewReader(sampleCSV))
	if err != nil {
		t.Fatalf("first Load returned error: %v", err)
	}
	second, err := l.Load(context.Background(), "b.csv", strings.NewReader(sampleCSV))
	if err != nil {
		t.Fatalf("second Load returned error: %v", err)
	}

	if provider.sets != 1 {
		t.Fatalf("cache was written %d times, want 1", provider.sets)
	}
	if first.Hash != second.Hash {
		t.Fatalf("hashes differ: %q vs %q", first.Hash, second.Hash)
	}
	if second.Name != "b.csv" {
		t.Fatalf("cached dataset kept stale name %q", second.Name)
	}
	if len(second.Observations) != len(first.Observations) {
		t.Fatalf("cached dataset has %d observations, want %d",
			len(second.Observations), len(first.Observations))
	}
}
