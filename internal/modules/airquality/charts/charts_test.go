package charts

import (
	"bytes"
	"errors"
	"regexp"
	"strconv"
	"strings"
	"testing"
	"time"

	"airquality-server/internal/modules/airquality/analysis"
	"airquality-server/internal/modules/airquality/types"
)

var testSize = Size{Width: 640, Height: 320}

func isPNG(b []byte) bool {
	return bytes.HasPrefix(b, []byte("\x89PNG\r\n\x1a\n"))
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{in: "", want: PNG},
		{in: "png", want: PNG},
		{in: "svg", want: SVG},
		{in: "gif", wantErr: true},
	}
	for _, tt := range tests {
		got, err := ParseFormat(tt.in)
		if (err != nil) != tt.wantErr {
			t.Fatalf("ParseFormat(%q) err = %v; wantErr %v", tt.in, err, tt.wantErr)
		}
		if got != tt.want {
			t.Errorf("ParseFormat(%q) = %q; want %q", tt.in, got, tt.want)
		}
	}
	if SVG.ContentType() != "image/svg+xml" || PNG.ContentType() != "image/png" {
		t.Error("unexpected content types")
	}
}

func TestTimeSeries(t *testing.T) {
	start := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)
	var points []types.Point
	for i := 0; i < 48; i++ {
		points = append(points, types.Point{Time: start.Add(time.Duration(i) * time.Hour), Value: 10 + float64(i%7)})
	}

	t.Run("png", func(t *testing.T) {
		var buf bytes.Buffer
		if err := TimeSeries(&buf, PNG, types.PM10, points, testSize); err != nil {
			t.Fatalf("TimeSeries() err = %v", err)
		}
		if !isPNG(buf.Bytes()) {
			t.Error("output is not a PNG")
		}
	})

	t.Run("svg", func(t *testing.T) {
		var buf bytes.Buffer
		if err := TimeSeries(&buf, SVG, types.TEMP, points, testSize); err != nil {
			t.Fatalf("TimeSeries() err = %v", err)
		}
		if !strings.Contains(buf.String(), "<svg") {
			t.Error("output is not SVG")
		}
	})

	t.Run("constant values still render", func(t *testing.T) {
		flat := []types.Point{{Time: start, Value: 5}, {Time: start.Add(time.Hour), Value: 5}}
		var buf bytes.Buffer
		if err := TimeSeries(&buf, PNG, types.HUMI, flat, testSize); err != nil {
			t.Fatalf("TimeSeries() err = %v", err)
		}
	})

	t.Run("not enough points", func(t *testing.T) {
		tests := [][]types.Point{
			nil,
			{{Time: start, Value: 1}},
			{{Time: start, Value: 1}, {Time: start, Value: 2}},
		}
		for _, pts := range tests {
			var buf bytes.Buffer
			if err := TimeSeries(&buf, PNG, types.PM10, pts, testSize); !errors.Is(err, ErrNotEnoughData) {
				t.Errorf("TimeSeries(%d points) err = %v; want ErrNotEnoughData", len(pts), err)
			}
		}
	})
}

func TestDistribution(t *testing.T) {
	box := analysis.BoxStats{
		Column:       types.PM10,
		Q1:           3,
		Median:       5,
		Q3:           7,
		LowerWhisker: 1,
		UpperWhisker: 8,
		Outliers:     []float64{100},
	}
	var buf bytes.Buffer
	if err := Distribution(&buf, PNG, box, testSize); err != nil {
		t.Fatalf("Distribution() err = %v", err)
	}
	if !isPNG(buf.Bytes()) {
		t.Error("output is not a PNG")
	}

	single := analysis.BoxStats{Column: types.TEMP, Q1: 4, Median: 4, Q3: 4, LowerWhisker: 4, UpperWhisker: 4}
	buf.Reset()
	if err := Distribution(&buf, PNG, single, testSize); err != nil {
		t.Fatalf("Distribution(single value) err = %v", err)
	}
}

func TestComparison(t *testing.T) {
	summaries := []analysis.SummaryStats{
		{Column: types.PM10, Mean: 20, Max: 80, Min: 2},
		{Column: types.TEMP, Mean: 15, Max: 35, Min: -3},
		{Column: types.HUMI, Mean: 65, Max: 98, Min: 20},
	}
	var buf bytes.Buffer
	if err := Comparison(&buf, PNG, summaries, testSize); err != nil {
		t.Fatalf("Comparison() err = %v", err)
	}
	if !isPNG(buf.Bytes()) {
		t.Error("output is not a PNG")
	}

	if err := Comparison(&buf, PNG, nil, testSize); !errors.Is(err, ErrNotEnoughData) {
		t.Errorf("Comparison(nil) err = %v; want ErrNotEnoughData", err)
	}

	t.Run("bars start at zero", func(t *testing.T) {
		var svg bytes.Buffer
		if err := Comparison(&svg, SVG, summaries, testSize); err != nil {
			t.Fatalf("Comparison(svg) err = %v", err)
		}
		boxes := svgBoxes(svg.String())
		if len(boxes) < len(summaries)*3 {
			t.Fatalf("found %d boxes; want at least %d bars", len(boxes), len(summaries)*3)
		}
		// Every statistic is non-zero, so no bar may collapse to a line.
		for _, b := range boxes {
			if b.top == b.bottom {
				t.Errorf("zero-height box at x=%d..%d y=%d", b.left, b.right, b.top)
			}
		}
	})
}

type svgBox struct{ left, top, right, bottom int }

var boxPath = regexp.MustCompile(`d="M (-?\d+) (-?\d+)\nL (-?\d+) (-?\d+)\nL (-?\d+) (-?\d+)\nL (-?\d+) (-?\d+)\nL (-?\d+) (-?\d+)"`)

// svgBoxes returns the rectangles go-chart drew as closed five-point paths.
func svgBoxes(svg string) []svgBox {
	var out []svgBox
	for _, m := range boxPath.FindAllStringSubmatch(svg, -1) {
		n := make([]int, 0, 10)
		for _, s := range m[1:] {
			v, _ := strconv.Atoi(s)
			n = append(n, v)
		}
		out = append(out, svgBox{left: n[0], top: n[1], right: n[2], bottom: n[5]})
	}
	return out
}
