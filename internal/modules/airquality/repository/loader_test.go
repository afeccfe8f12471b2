package repository

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"airquality-server/internal/modules/airquality/types"
)

const testHeader = "DATE/HEURE;NO;NO2;PM10;CO2;TEMP;HUMI\n"

func writeCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "qualiteair.csv")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write csv: %v", err)
	}
	return path
}

func TestCleanNumber(t *testing.T) {
	tests := []struct {
		in   string
		want float64
		ok   bool
	}{
		{in: "12,3", want: 12.3, ok: true},
		{in: " 20,0 ", want: 20.0, ok: true},
		{in: "61", want: 61, ok: true},
		{in: "-4,25", want: -4.25, ok: true},
		{in: "12.5", want: 12.5, ok: true},
		{in: "bad", ok: false},
		{in: "", ok: false},
		{in: "   ", ok: false},
		{in: "nan", ok: false},
		{in: "NaN", ok: false},
		{in: "inf", ok: false},
		{in: "1,2,3", ok: false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got := CleanNumber(tt.in)
			if !tt.ok {
				if got != nil {
					t.Fatalf("CleanNumber(%q) = %v; want missing", tt.in, *got)
				}
				return
			}
			if got == nil {
				t.Fatalf("CleanNumber(%q) = missing; want %v", tt.in, tt.want)
			}
			if *got != tt.want {
				t.Errorf("CleanNumber(%q) = %v; want %v", tt.in, *got, tt.want)
			}
		})
	}
}

func TestParse_badCellBecomesMissing(t *testing.T) {
	in := testHeader +
		"2025-01-01T00:00:00+01:00;1;2;10,5;400;20,0;60\n" +
		"2025-01-01T01:00:00+01:00;1;2;bad;400;21,0;61\n"

	ds, err := Parse(strings.NewReader(in), DefaultOptions())
	if err != nil {
		t.Fatalf("Parse() err = %v; want nil", err)
	}
	if ds.Len() != 2 {
		t.Fatalf("Len() = %d; want 2", ds.Len())
	}

	first := ds.Observations[0]
	if v, ok := first.Value(types.PM10); !ok || v != 10.5 {
		t.Errorf("row 1 PM10 = %v,%v; want 10.5,true", v, ok)
	}

	second := ds.Observations[1]
	if second.PM10 != nil {
		t.Errorf("row 2 PM10 = %v; want missing", *second.PM10)
	}
	if v, ok := second.Value(types.TEMP); !ok || v != 21.0 {
		t.Errorf("row 2 TEMP = %v,%v; want 21,true", v, ok)
	}
	if v, ok := second.Value(types.HUMI); !ok || v != 61.0 {
		t.Errorf("row 2 HUMI = %v,%v; want 61,true", v, ok)
	}
	if second.Time == nil {
		t.Fatal("row 2 time missing")
	}
	want := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	if !second.Time.Equal(want) {
		t.Errorf("row 2 time = %v; want %v", second.Time, want)
	}
}

func TestParse_keepsRowCount(t *testing.T) {
	in := testHeader +
		"not-a-date;;;;;;\n" +
		"2025-01-01T00:00:00Z;1\n" +
		";;;;;;\n"

	ds, err := Parse(strings.NewReader(in), DefaultOptions())
	if err != nil {
		t.Fatalf("Parse() err = %v; want nil", err)
	}
	if ds.Len() != 3 {
		t.Fatalf("Len() = %d; want 3", ds.Len())
	}
	for i, o := range ds.Observations {
		if o.PM10 != nil || o.Temp != nil || o.Humi != nil {
			t.Errorf("row %d = %+v; want all numeric fields missing", i, o)
		}
	}
	if ds.Observations[0].Time != nil {
		t.Errorf("row 1 time = %v; want missing", ds.Observations[0].Time)
	}
	if ds.Observations[1].Time == nil {
		t.Error("row 2 time missing; want parsed")
	}
}

func TestParse_customLayoutAndDelimiter(t *testing.T) {
	opts := Options{
		Delimiter:  '\t',
		TimeColumn: "date",
		TimeLayout: "02/01/2006 15:04",
		Location:   time.UTC,
	}
	in := "date\tpm10\ttemp\thumi\n15/03/2025 14:30\t7,25\t12\t80,5\n"

	ds, err := Parse(strings.NewReader(in), opts)
	if err != nil {
		t.Fatalf("Parse() err = %v; want nil", err)
	}
	o := ds.Observations[0]
	if o.Time == nil || !o.Time.Equal(time.Date(2025, 3, 15, 14, 30, 0, 0, time.UTC)) {
		t.Errorf("time = %v; want 2025-03-15 14:30 UTC", o.Time)
	}
	if v, _ := o.Value(types.HUMI); v != 80.5 {
		t.Errorf("HUMI = %v; want 80.5", v)
	}
}

func TestParse_structuralErrors(t *testing.T) {
	tests := []struct {
		name string
		in   string
	}{
		{name: "empty", in: ""},
		{name: "wrong delimiter", in: "DATE/HEURE,PM10,TEMP,HUMI\n2025-01-01T00:00:00Z,1,2,3\n"},
		{name: "missing humidity", in: "DATE/HEURE;PM10;TEMP\n2025-01-01T00:00:00Z;1;2\n"},
		{name: "missing timestamp", in: "PM10;TEMP;HUMI\n1;2;3\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(strings.NewReader(tt.in), DefaultOptions())
			var dsErr *DataSourceError
			if !errors.As(err, &dsErr) {
				t.Fatalf("Parse() err = %v; want *DataSourceError", err)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "absent.csv")
		_, err := Load(path, DefaultOptions())
		var dsErr *DataSourceError
		if !errors.As(err, &dsErr) {
			t.Fatalf("Load() err = %v; want *DataSourceError", err)
		}
		if dsErr.Path != path {
			t.Errorf("Path = %q; want %q", dsErr.Path, path)
		}
		if !errors.Is(err, os.ErrNotExist) {
			t.Errorf("err = %v; want to wrap os.ErrNotExist", err)
		}
	})

	t.Run("structural error carries path", func(t *testing.T) {
		path := writeCSV(t, "A;B\n1;2\n")
		_, err := Load(path, DefaultOptions())
		var dsErr *DataSourceError
		if !errors.As(err, &dsErr) {
			t.Fatalf("Load() err = %v; want *DataSourceError", err)
		}
		if !strings.Contains(err.Error(), path) {
			t.Errorf("err = %q; want path in message", err.Error())
		}
	})

	t.Run("sets source and hash", func(t *testing.T) {
		path := writeCSV(t, testHeader+"2025-01-01T00:00:00Z;;;1;;2;3\n")
		ds, err := Load(path, DefaultOptions())
		if err != nil {
			t.Fatalf("Load() err = %v; want nil", err)
		}
		if ds.Source != path {
			t.Errorf("Source = %q; want %q", ds.Source, path)
		}
		if ds.Hash == 0 {
			t.Error("Hash = 0; want content hash")
		}
	})
}
