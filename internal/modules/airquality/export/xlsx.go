package export

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/xuri/excelize/v2"

	"airquality-server/internal/modules/airquality/types"
)

const SheetName = "Observations"

// WriteXLSX writes the cleaned dataset as a single-sheet workbook. Missing
// values are left as empty cells.
func WriteXLSX(w io.Writer, ds *types.Dataset) error {
	f := excelize.NewFile()
	defer func() {
		if err := f.Close(); err != nil {
			slog.Error("close workbook", "error", err)
		}
	}()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	header := []any{"Time"}
	for _, c := range types.Columns {
		header = append(header, axisHeader(c))
	}
	if err := f.SetSheetRow(SheetName, "A1", &header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	timeStyle, err := f.NewStyle(&excelize.Style{NumFmt: 22})
	if err != nil {
		return fmt.Errorf("time style: %w", err)
	}

	for i, o := range ds.Observations {
		rowNum := i + 2
		row := make([]any, 1, 1+len(types.Columns))
		for _, c := range types.Columns {
			if v, ok := o.Value(c); ok {
				row = append(row, v)
			} else {
				row = append(row, nil)
			}
		}
		cell, err := excelize.CoordinatesToCellName(1, rowNum)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(SheetName, cell, &row); err != nil {
			return fmt.Errorf("write row %d: %w", rowNum, err)
		}
		if o.Time != nil {
			if err := f.SetCellValue(SheetName, cell, o.Time.UTC()); err != nil {
				return fmt.Errorf("write time row %d: %w", rowNum, err)
			}
			if err := f.SetCellStyle(SheetName, cell, cell, timeStyle); err != nil {
				return fmt.Errorf("style time row %d: %w", rowNum, err)
			}
		}
	}

	if err := f.SetColWidth(SheetName, "A", "A", 20); err != nil {
		return fmt.Errorf("column width: %w", err)
	}
	return f.Write(w)
}

func axisHeader(c types.Column) string {
	if u := c.Unit(); u != "" {
		return fmt.Sprintf("%s (%s)", c, u)
	}
	return string(c)
}
