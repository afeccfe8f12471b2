package export

import (
	"bytes"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"airquality-server/internal/modules/airquality/types"
)

func f(v float64) *float64 { return &v }

func TestWriteXLSX(t *testing.T) {
	ts := time.Date(2025, 1, 1, 8, 0, 0, 0, time.UTC)
	ds := &types.Dataset{Observations: []types.Observation{
		{Time: &ts, PM10: f(10.5), Temp: f(20), Humi: f(60)},
		{PM10: nil, Temp: f(21), Humi: f(61)},
	}}

	var buf bytes.Buffer
	if err := WriteXLSX(&buf, ds); err != nil {
		t.Fatalf("WriteXLSX() err = %v", err)
	}

	wb, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("OpenReader: %v", err)
	}
	t.Cleanup(func() { _ = wb.Close() })

	rows, err := wb.GetRows(SheetName)
	if err != nil {
		t.Fatalf("GetRows: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("rows = %d; want 3 (header + 2)", len(rows))
	}

	wantHeader := []string{"Time", "PM10 (µg/m³)", "TEMP (°C)", "HUMI (%)"}
	for i, want := range wantHeader {
		if rows[0][i] != want {
			t.Errorf("header[%d] = %q; want %q", i, rows[0][i], want)
		}
	}

	if rows[1][0] == "" {
		t.Error("row 1 time cell empty; want a date")
	}
	if rows[1][1] != "10.5" {
		t.Errorf("row 1 PM10 = %q; want 10.5", rows[1][1])
	}

	if rows[2][0] != "" {
		t.Errorf("row 2 time = %q; want empty", rows[2][0])
	}
	if rows[2][1] != "" {
		t.Errorf("row 2 PM10 = %q; want empty for missing", rows[2][1])
	}
	if rows[2][2] != "21" || rows[2][3] != "61" {
		t.Errorf("row 2 TEMP,HUMI = %q,%q; want 21,61", rows[2][2], rows[2][3])
	}
}
