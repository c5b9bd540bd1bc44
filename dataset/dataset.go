// Package dataset loads mileage/price observations used to fit the price model.
package dataset

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

const (
	KmColumn    = "km"
	PriceColumn = "price"
)

// Record is a single observation.
type Record struct {
	Km    float64 `json:"km"`
	Price float64 `json:"price"`
}

// Dataset is an ordered sequence of records.
type Dataset struct {
	Records []Record `json:"records"`
}

// New builds a dataset from parallel km/price slices.
func New(km, price []float64) (*Dataset, error) {
	if len(km) != len(price) {
		return nil, errors.New("km and price length mismatch")
	}
	records := make([]Record, len(km))
	for i := range km {
		records[i] = Record{Km: km[i], Price: price[i]}
	}
	return &Dataset{Records: records}, nil
}

func (d *Dataset) Len() int {
	if d == nil {
		return 0
	}
	return len(d.Records)
}

// Km returns the mileage column.
func (d *Dataset) Km() []float64 {
	values := make([]float64, d.Len())
	for i, r := range d.Records {
		values[i] = r.Km
	}
	return values
}

// Prices returns the price column.
func (d *Dataset) Prices() []float64 {
	values := make([]float64, d.Len())
	for i, r := range d.Records {
		values[i] = r.Price
	}
	return values
}

// DataError reports a dataset that is missing or cannot be parsed.
type DataError struct {
	Source string
	Line   int
	Err    error
}

func (e *DataError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("dataset %s line %d: %v", e.Source, e.Line, e.Err)
	}
	return fmt.Sprintf("dataset %s: %v", e.Source, e.Err)
}

func (e *DataError) Unwrap() error {
	return e.Err
}

// Source yields a dataset on demand.
type Source interface {
	Load() (*Dataset, error)
}

// SourceFunc adapts a function to Source.
type SourceFunc func() (*Dataset, error)

func (f SourceFunc) Load() (*Dataset, error) {
	return f()
}

// File is a CSV file source.
type File string

func (f File) Load() (*Dataset, error) {
	return Load(string(f))
}

// Static always returns the wrapped dataset.
func Static(d *Dataset) Source {
	return SourceFunc(func() (*Dataset, error) { return d, nil })
}

// Load reads a CSV file with at least the km and price columns.
func Load(path string) (*Dataset, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, &DataError{Source: path, Err: err}
	}
	defer file.Close()

	return Read(file, path)
}

// Read parses CSV data. Column order is free; extra columns are ignored.
// A leading UTF-8 byte order mark is dropped.
func Read(r io.Reader, source string) (*Dataset, error) {
	decoded := transform.NewReader(bufio.NewReader(r), unicode.BOMOverride(unicode.UTF8.NewDecoder()))
	reader := csv.NewReader(decoded)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, &DataError{Source: source, Err: errors.New("empty input")}
	}
	if err != nil {
		return nil, &DataError{Source: source, Err: err}
	}

	kmIdx, priceIdx := -1, -1
	for i, name := range header {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case KmColumn:
			kmIdx = i
		case PriceColumn:
			priceIdx = i
		}
	}
	if kmIdx < 0 || priceIdx < 0 {
		return nil, &DataError{Source: source, Line: 1, Err: fmt.Errorf("header must contain %q and %q columns", KmColumn, PriceColumn)}
	}

	records := make([]Record, 0)
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, &DataError{Source: source, Err: err}
		}
		line, _ := reader.FieldPos(0)
		km, err := parseField(row[kmIdx])
		if err != nil {
			return nil, &DataError{Source: source, Line: line, Err: fmt.Errorf("km: %w", err)}
		}
		price, err := parseField(row[priceIdx])
		if err != nil {
			return nil, &DataError{Source: source, Line: line, Err: fmt.Errorf("price: %w", err)}
		}
		records = append(records, Record{Km: km, Price: price})
	}

	return &Dataset{Records: records}, nil
}

func parseField(raw string) (float64, error) {
	value, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return 0, fmt.Errorf("non-finite value %q", raw)
	}
	return value, nil
}
