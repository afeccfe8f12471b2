package types

import (
	"fmt"
	"strings"
	"time"
)

// Column names one of the numeric measurement columns of the dataset.
type Column string

const (
	PM10 Column = "PM10"
	TEMP Column = "TEMP"
	HUMI Column = "HUMI"
)

// Columns lists the numeric columns in canonical order.
var Columns = []Column{PM10, TEMP, HUMI}

// ParseColumn matches s against the known columns, ignoring case and surrounding space.
func ParseColumn(s string) (Column, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	for _, c := range Columns {
		if string(c) == s {
			return c, nil
		}
	}
	return "", fmt.Errorf("unknown column %q (allowed: PM10, TEMP, HUMI)", s)
}

func (c Column) Label() string {
	switch c {
	case PM10:
		return "PM10"
	case TEMP:
		return "Temperature"
	case HUMI:
		return "Humidity"
	default:
		return string(c)
	}
}

func (c Column) Unit() string {
	switch c {
	case PM10:
		return "µg/m³"
	case TEMP:
		return "°C"
	case HUMI:
		return "%"
	default:
		return ""
	}
}

// Observation is one cleaned row. A nil field is missing.
type Observation struct {
	Time *time.Time `json:"time"`
	PM10 *float64   `json:"pm10"`
	Temp *float64   `json:"temp"`
	Humi *float64   `json:"humi"`
}

// Value returns the column value and whether it is present.
func (o Observation) Value(c Column) (float64, bool) {
	var p *float64
	switch c {
	case PM10:
		p = o.PM10
	case TEMP:
		p = o.Temp
	case HUMI:
		p = o.Humi
	}
	if p == nil {
		return 0, false
	}
	return *p, true
}

// Dataset is the parsed file in input order. It is never mutated after Load.
type Dataset struct {
	Source       string        `json:"source"`
	Hash         uint64        `json:"-"`
	Observations []Observation `json:"observations"`
}

func (d *Dataset) Len() int {
	if d == nil {
		return 0
	}
	return len(d.Observations)
}

// Values returns the present values of c in row order.
func (d *Dataset) Values(c Column) []float64 {
	out := make([]float64, 0, d.Len())
	for _, o := range d.Observations {
		if v, ok := o.Value(c); ok {
			out = append(out, v)
		}
	}
	return out
}

// Point is one sample of a time series.
type Point struct {
	Time  time.Time `json:"time"`
	Value float64   `json:"value"`
}

// Series returns (timestamp, value) pairs for rows where both are present, in row order.
func (d *Dataset) Series(c Column) []Point {
	out := make([]Point, 0, d.Len())
	for _, o := range d.Observations {
		if o.Time == nil {
			continue
		}
		if v, ok := o.Value(c); ok {
			out = append(out, Point{Time: *o.Time, Value: v})
		}
	}
	return out
}
