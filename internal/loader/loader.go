// Package loader turns uploaded incident tables into cleaned observation
// datasets. The column contract is explicit: a header row naming latitude,
// longitude, crime_type and date/time columns (case and spacing are
// normalised once, at header read). Rows with missing coordinates or
// unparsable timestamps are dropped and counted.
package loader

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/csv"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/crimelens/crimelens-engine/internal/cache"
	"github.com/crimelens/crimelens-engine/internal/models"
)

// Loader errors.
var (
	ErrMissingColumns    = errors.New("dataset is missing required columns")
	ErrEmptyDataset      = errors.New("dataset contains no usable rows")
	ErrUnsupportedFormat = errors.New("unsupported dataset format")
)

// Column aliases accepted after normalisation. Each required field has one
// canonical name plus the spellings seen in real exports.
var (
	latitudeColumns  = []string{"latitude", "lat"}
	longitudeColumns = []string{"longitude", "lon", "lng"}
	categoryColumns  = []string{"crime_type", "category", "incident_type"}
	timestampColumns = []string{"date/time", "datetime", "date_time", "timestamp", "date"}
)

// Timestamp layouts tried in order. Values are timezone-naive and read as UTC.
var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"01/02/2006 15:04:05",
	"01/02/2006 15:04",
	"01/02/2006",
}

// Loader parses uploads and memoizes the parsed dataset by content hash, so
// re-uploading the same file skips the parse entirely. A cache hit is
// behaviorally indistinguishable from recomputation.
type Loader struct {
	logger   *slog.Logger
	cache    cache.Provider
	cacheTTL time.Duration
}

// New constructs a Loader. A nil cache disables memoization.
func New(logger *slog.Logger, provider cache.Provider, cacheTTL time.Duration) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	if provider == nil {
		provider = cache.NoopProvider{}
	}
	return &Loader{logger: logger, cache: provider, cacheTTL: cacheTTL}
}

// Load reads a CSV or XLSX upload into a Dataset.
func (l *Loader) Load(ctx context.Context, name string, r io.Reader) (models.Dataset, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return models.Dataset{}, fmt.Errorf("read upload: %w", err)
	}

	sum := sha256.Sum256(data)
	hash := hex.EncodeToString(sum[:])
	cacheKey := "dataset:" + hash

	if cached, err := l.cache.Get(ctx, cacheKey); err == nil {
		var dataset models.Dataset
		if err := json.Unmarshal(cached, &dataset); err == nil {
			l.logger.Debug("dataset cache hit", slog.String("hash", hash))
			dataset.Name = name
			return dataset, nil
		}
	}

	var rows [][]string
	switch strings.ToLower(filepath.Ext(name)) {
	case ".xlsx", ".xls":
		rows, err = readWorkbook(data)
	case ".csv", "":
		rows, err = readCSV(data)
	default:
		return models.Dataset{}, fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Ext(name))
	}
	if err != nil {
		return models.Dataset{}, err
	}

	dataset, err := parseRows(rows)
	if err != nil {
		return models.Dataset{}, err
	}
	dataset.Name = name
	dataset.Hash = hash
	dataset.LoadedAt = time.Now().UTC()

	if encoded, err := json.Marshal(dataset); err == nil {
		if err := l.cache.Set(ctx, cacheKey, encoded, l.cacheTTL); err != nil {
			l.logger.Warn("dataset cache store failed", slog.Any("error", err))
		}
	}

	l.logger.Info("dataset loaded",
		slog.String("name", name),
		slog.Int("observations", len(dataset.Observations)),
		slog.Int("dropped", dataset.Dropped))
	return dataset, nil
}

func readCSV(data []byte) ([][]string, error) {
	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}
	return rows, nil
}

func readWorkbook(data []byte) ([][]string, error) {
	book, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer book.Close()

	sheet := book.GetSheetName(0)
	rows, err := book.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}
	return rows, nil
}

func parseRows(rows [][]string) (models.Dataset, error) {
	if len(rows) == 0 {
		return models.Dataset{}, fmt.Errorf("%w: no header row", ErrEmptyDataset)
	}

	header := make([]string, len(rows[0]))
	for i, h := range rows[0] {
		header[i] = normaliseColumn(h)
	}

	latIdx, latOK := findColumn(header, latitudeColumns)
	lonIdx, lonOK := findColumn(header, longitudeColumns)
	catIdx, catOK := findColumn(header, categoryColumns)
	tsIdx, tsOK := findColumn(header, timestampColumns)

	missing := make([]string, 0)
	if !latOK {
		missing = append(missing, "latitude")
	}
	if !lonOK {
		missing = append(missing, "longitude")
	}
	if !catOK {
		missing = append(missing, "crime_type")
	}
	if !tsOK {
		missing = append(missing, "date/time")
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return models.Dataset{}, fmt.Errorf("%w: %s", ErrMissingColumns, strings.Join(missing, ", "))
	}

	dataset := models.Dataset{}
	width := maxIndex(latIdx, lonIdx, catIdx, tsIdx) + 1
	for _, row := range rows[1:] {
		if len(row) < width {
			dataset.Dropped++
			continue
		}

		lat, latErr := strconv.ParseFloat(strings.TrimSpace(row[latIdx]), 64)
		lon, lonErr := strconv.ParseFloat(strings.TrimSpace(row[lonIdx]), 64)
		if latErr != nil || lonErr != nil {
			dataset.Dropped++
			continue
		}

		ts, ok := parseTimestamp(strings.TrimSpace(row[tsIdx]))
		if !ok {
			dataset.Dropped++
			continue
		}

		dataset.Observations = append(dataset.Observations, models.Observation{
			Latitude:  lat,
			Longitude: lon,
			Category:  strings.TrimSpace(row[catIdx]),
			Timestamp: ts,
		})
	}

	if len(dataset.Observations) == 0 {
		return models.Dataset{}, fmt.Errorf("%w: all %d rows dropped", ErrEmptyDataset, dataset.Dropped)
	}
	return dataset, nil
}

// normaliseColumn lower-cases a header cell and collapses spacing to
// underscores, once, at the schema boundary.
func normaliseColumn(name string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), " ", "_")
}

func findColumn(header []string, aliases []string) (int, bool) {
	for _, alias := range aliases {
		for i, h := range header {
			if h == alias {
				return i, true
			}
		}
	}
	return 0, false
}

func parseTimestamp(value string) (time.Time, bool) {
	for _, layout := range timestampLayouts {
		if ts, err := time.Parse(layout, value); err == nil {
			return ts, true
		}
	}
	return time.Time{}, false
}

func maxIndex(indices ...int) int {
	max := 0
	for _, idx := range indices {
		if idx > max {
			max = idx
		}
	}
	return max
}
