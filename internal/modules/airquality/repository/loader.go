package repository

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"

	"airquality-server/internal/modules/airquality/types"
)

// Options controls how the delimited file is read.
type Options struct {
	// Delimiter separates fields; the decimal separator of numeric fields is always ','.
	Delimiter rune
	// TimeColumn is the header name of the timestamp column.
	TimeColumn string
	// TimeLayout is a Go reference layout used for every timestamp.
	TimeLayout string
	// Location applies to layouts that carry no zone offset.
	Location *time.Location
}

func DefaultOptions() Options {
	return Options{
		Delimiter:  ';',
		TimeColumn: "DATE/HEURE",
		TimeLayout: time.RFC3339,
		Location:   time.UTC,
	}
}

// DataSourceError reports a file that is absent or structurally unusable.
type DataSourceError struct {
	Path   string
	Reason string
	Err    error
}

func (e *DataSourceError) Error() string {
	msg := "data source"
	if e.Path != "" {
		msg += " " + strconv.Quote(e.Path)
	}
	msg += ": " + e.Reason
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *DataSourceError) Unwrap() error { return e.Err }

// Load reads and cleans the file at path.
func Load(path string, opt Options) (*types.Dataset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &DataSourceError{Path: path, Reason: "read file", Err: err}
	}
	return parseBytes(path, data, opt)
}

func parseBytes(path string, data []byte, opt Options) (*types.Dataset, error) {
	ds, err := Parse(bytes.NewReader(data), opt)
	if err != nil {
		var dsErr *DataSourceError
		if errors.As(err, &dsErr) && dsErr.Path == "" {
			dsErr.Path = path
		}
		return nil, err
	}
	ds.Source = path
	ds.Hash = xxhash.Sum64(data)
	return ds, nil
}

// Parse reads a header row followed by data rows. Every data row becomes an
// Observation; cells that do not parse are left missing.
func Parse(r io.Reader, opt Options) (*types.Dataset, error) {
	if opt.Delimiter == 0 {
		opt.Delimiter = ';'
	}
	if opt.TimeColumn == "" {
		opt.TimeColumn = DefaultOptions().TimeColumn
	}
	if opt.TimeLayout == "" {
		opt.TimeLayout = time.RFC3339
	}
	if opt.Location == nil {
		opt.Location = time.UTC
	}

	cr := csv.NewReader(r)
	cr.Comma = opt.Delimiter
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.ReuseRecord = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, &DataSourceError{Reason: "empty file"}
		}
		return nil, &DataSourceError{Reason: "read header", Err: err}
	}
	idx, err := indexHeader(header, opt.TimeColumn)
	if err != nil {
		return nil, err
	}

	ds := &types.Dataset{}
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, &DataSourceError{Reason: fmt.Sprintf("read row %d", len(ds.Observations)+2), Err: err}
		}
		ds.Observations = append(ds.Observations, types.Observation{
			Time: parseTime(field(rec, idx.time), opt),
			PM10: CleanNumber(field(rec, idx.pm10)),
			Temp: CleanNumber(field(rec, idx.temp)),
			Humi: CleanNumber(field(rec, idx.humi)),
		})
	}
	return ds, nil
}

type columnIndex struct {
	time, pm10, temp, humi int
}

func indexHeader(header []string, timeColumn string) (columnIndex, error) {
	pos := make(map[string]int, len(header))
	for i, h := range header {
		h = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		key := strings.ToUpper(h)
		if _, dup := pos[key]; !dup {
			pos[key] = i
		}
	}
	var missing []string
	lookup := func(name string) int {
		i, ok := pos[strings.ToUpper(strings.TrimSpace(name))]
		if !ok {
			missing = append(missing, name)
			return -1
		}
		return i
	}
	idx := columnIndex{
		time: lookup(timeColumn),
		pm10: lookup(string(types.PM10)),
		temp: lookup(string(types.TEMP)),
		humi: lookup(string(types.HUMI)),
	}
	if len(missing) > 0 {
		return columnIndex{}, &DataSourceError{
			Reason: fmt.Sprintf("header %q lacks required columns %s", strings.Join(header, "|"), strings.Join(missing, ", ")),
		}
	}
	return idx, nil
}

func field(rec []string, i int) string {
	if i < 0 || i >= len(rec) {
		return ""
	}
	return rec[i]
}

// CleanNumber converts a comma-decimal text cell to a value, or nil when the
// cell is empty, unparseable or not finite.
func CleanNumber(s string) *float64 {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", ".")
	if s == "" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

func parseTime(s string, opt Options) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	t, err := time.ParseInLocation(opt.TimeLayout, s, opt.Location)
	if err != nil {
		return nil
	}
	return &t
}
