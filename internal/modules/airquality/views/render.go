package views

import (
	"errors"
	"html/template"
	"io"
	"io/fs"

	"airquality-server/internal/modules/airquality/analysis"
	"airquality-server/internal/modules/airquality/types"
)

var pagesTmpl *template.Template

// loadTemplatesFromFS loads page templates from the given fs and dir.
// Used by LoadTemplates and by tests to simulate failure scenarios.
func loadTemplatesFromFS(fsys fs.FS, dir, locale string) error {
	printer, err := NewPrinter(locale)
	if err != nil {
		return err
	}
	sub, err := fs.Sub(fsys, dir)
	if err != nil {
		return err
	}
	tmpl, err := template.New("").Funcs(templateFuncs(printer)).ParseFS(sub, "*.html", "partials/*.html")
	if err != nil {
		return err
	}
	pagesTmpl = tmpl
	return nil
}

// LoadTemplates loads the embedded templates, formatting numbers for locale.
// Call during startup before serving requests; if it returns an error, do
// not start the server.
func LoadTemplates(locale string) error {
	return loadTemplatesFromFS(viewsFS, "templates", locale)
}

func render(w io.Writer, name string, data any) error {
	if pagesTmpl == nil {
		return errors.New("templates not loaded: call views.LoadTemplates during startup")
	}
	return pagesTmpl.ExecuteTemplate(w, name, data)
}

// Page carries the fields every full page needs for the shared layout.
type Page struct {
	Title  string
	Active string // nav entry: "dashboard", "correlations" or "predictions"
	Source string
	Rows   int
}

// ColumnOption is one entry of a column selector.
type ColumnOption struct {
	Value    string
	Label    string
	Selected bool
}

// Options builds selector entries for columns with selected marked.
func Options(columns []types.Column, selected types.Column) []ColumnOption {
	out := make([]ColumnOption, 0, len(columns))
	for _, c := range columns {
		out = append(out, ColumnOption{Value: string(c), Label: c.Label(), Selected: c == selected})
	}
	return out
}

// PaginationItem is one entry in the pagination bar: either a page number or an ellipsis.
type PaginationItem struct {
	Page     int
	Ellipsis bool
}

// ObservationRow is one raw-data table row. Index is 1-based in file order.
type ObservationRow struct {
	Index int
	Time  string
	PM10  *float64
	Temp  *float64
	Humi  *float64
}

// ObservationsData is the view model for the raw-data partial.
type ObservationsData struct {
	Column      string // for pagination links
	Rows        []ObservationRow
	Total       int
	CurrentPage int
	TotalPages  int
	HasPrev     bool
	HasNext     bool
	PrevPage    int
	NextPage    int
	PageItems   []PaginationItem
}

type DashboardData struct {
	Page
	Columns      []ColumnOption
	Column       types.Column
	Unit         string
	Summary      *analysis.SummaryStats
	SummaryError string
	Describe     []analysis.SummaryStats
	Observations ObservationsData
}

func RenderDashboard(w io.Writer, data *DashboardData) error {
	return render(w, "dashboard.html", data)
}

// RenderObservationsPartial executes only the raw-data partial into w.
// Use for HTMX fragment refresh when paging.
func RenderObservationsPartial(w io.Writer, data *ObservationsData) error {
	return render(w, "partials/observations.html", data)
}

// HeatCell is one cell of the correlation heatmap.
type HeatCell struct {
	Row, Col    types.Column
	Coefficient analysis.Coefficient
	Count       int
}

type HeatRow struct {
	Column types.Column
	Cells  []HeatCell
}

type CorrelationsData struct {
	Page
	Columns         []types.Column
	Rows            []HeatRow
	ComparisonError string
}

func RenderCorrelations(w io.Writer, data *CorrelationsData) error {
	return render(w, "correlations.html", data)
}

// Slider is a range input bounded by a feature's observed range.
type Slider struct {
	Name   string // query parameter, "x1" or "x2"
	Column types.Column
	Label  string
	Min    float64
	Max    float64
	Step   float64
	Value  float64
}

// PredictionResult is the view model for the prediction partial.
type PredictionResult struct {
	Target   types.Column
	Label    string
	Unit     string
	Value    float64
	Equation string
	N        int
	R2       float64
	Error    string
}

type PredictionsData struct {
	Page
	Targets  []ColumnOption
	Target   types.Column
	Features string // columns behind x1 and x2, e.g. "TEMP,HUMI"
	Sliders  []Slider
	Result   PredictionResult
}

func RenderPredictions(w io.Writer, data *PredictionsData) error {
	return render(w, "predictions.html", data)
}

// RenderPredictionPartial executes only the prediction result into w.
// Use for HTMX refresh on slider input.
func RenderPredictionPartial(w io.Writer, data *PredictionResult) error {
	return render(w, "partials/prediction.html", data)
}

type ErrorData struct {
	Page
	Status  int
	Message string
}

func RenderError(w io.Writer, data *ErrorData) error {
	return render(w, "error.html", data)
}
