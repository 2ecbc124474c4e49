package catalog

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/foxxcyber/meal-basket/internal/models"
)

var ErrMissingColumn = errors.New("missing CSV column")

// Column names. The price column may be called new_price or price.
const (
	ColumnName     = "product_name"
	ColumnCategory = "product_category"
	ColumnBrand    = "brand"
	ColumnSize     = "package_size"
	ColumnUnit     = "unit"
	ColumnPrice    = "new_price"
)

// Reader reads catalog records from CSV with a header row
type Reader struct {
	csv  *csv.Reader
	cols map[string]int
	line int
}

// NewReader reads the header and checks the required columns.
func NewReader(r io.Reader) (*Reader, error) {
	csvReader := csv.NewReader(bufio.NewReader(r))
	csvReader.FieldsPerRecord = -1
	csvReader.LazyQuotes = true

	header, err := csvReader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}

	cols := make(map[string]int)
	for i, col := range header {
		cols[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(col, "\ufeff")))] = i
	}
	if _, ok := cols[ColumnPrice]; !ok {
		if i, ok := cols["price"]; ok {
			cols[ColumnPrice] = i
		}
	}
	for _, required := range []string{ColumnName, ColumnSize, ColumnUnit, ColumnPrice} {
		if _, ok := cols[required]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingColumn, required)
		}
	}

	return &Reader{csv: csvReader, cols: cols, line: 1}, nil
}

// Next returns the next record, or io.EOF at the end of input.
// Numbers accept a comma as the decimal separator; unparsable numbers
// become NaN and fail normalization.
func (r *Reader) Next() (Record, error) {
	row, err := r.csv.Read()
	if err != nil {
		return Record{}, err
	}
	r.line++

	return Record{
		Line:        r.line,
		Name:        r.field(row, ColumnName),
		Category:    r.field(row, ColumnCategory),
		Brand:       r.field(row, ColumnBrand),
		PackageSize: toFloat(r.field(row, ColumnSize)),
		Unit:        r.field(row, ColumnUnit),
		Price:       toFloat(r.field(row, ColumnPrice)),
	}, nil
}

func (r *Reader) field(row []string, col string) string {
	i, ok := r.cols[col]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func toFloat(s string) float64 {
	f, err := strconv.ParseFloat(strings.ReplaceAll(strings.TrimSpace(s), ",", "."), 64)
	if err != nil {
		return math.NaN()
	}
	return f
}

// Stats counts an import run
type Stats struct {
	Rows     int
	Imported int
	Skipped  map[string]int
}

func (s *Stats) skip(reason string) {
	if s.Skipped == nil {
		s.Skipped = make(map[string]int)
	}
	s.Skipped[reason]++
}

// Load reads and normalizes every row. Invalid rows are counted by reason
// and skipped; malformed CSV stops the load.
func Load(r io.Reader) ([]models.Product, Stats, error) {
	var stats Stats

	reader, err := NewReader(r)
	if err != nil {
		return nil, stats, err
	}

	var products []models.Product
	for {
		record, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return products, stats, fmt.Errorf("failed to read CSV row %d: %w", reader.line+1, err)
		}
		stats.Rows++

		product, err := Normalize(record)
		if err != nil {
			stats.skip(skipReason(err))
			continue
		}
		products = append(products, product)
		stats.Imported++
	}
	return products, stats, nil
}

func skipReason(err error) string {
	for _, known := range []error{ErrInvalidPrice, ErrInvalidSize, ErrInvalidUnit, ErrTooExpensive, ErrExcluded, ErrEmptyName} {
		if errors.Is(err, known) {
			return known.Error()
		}
	}
	return err.Error()
}
