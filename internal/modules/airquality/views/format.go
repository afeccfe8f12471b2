package views

import (
	"fmt"
	"math"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"airquality-server/internal/modules/airquality/analysis"
)

// NewPrinter returns a number printer for a BCP 47 locale tag such as "fr" or "en-GB".
func NewPrinter(locale string) (*message.Printer, error) {
	tag, err := language.Parse(locale)
	if err != nil {
		return nil, fmt.Errorf("invalid locale %q: %w", locale, err)
	}
	return message.NewPrinter(tag), nil
}

func templateFuncs(p *message.Printer) map[string]any {
	return map[string]any{
		"num":  func(v any) string { return formatNumber(p, v) },
		"int":  func(n int) string { return p.Sprintf("%d", n) },
		"coef": func(c analysis.Coefficient) string { return formatCoefficient(p, c) },
		"heat": heatColor,
	}
}

// formatNumber prints v with two decimals in the printer's locale, or "-"
// when v is missing.
func formatNumber(p *message.Printer, v any) string {
	var f float64
	switch t := v.(type) {
	case float64:
		f = t
	case *float64:
		if t == nil {
			return "-"
		}
		f = *t
	case int:
		f = float64(t)
	default:
		return fmt.Sprint(v)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return "-"
	}
	return p.Sprintf("%.2f", f)
}

func formatCoefficient(p *message.Printer, c analysis.Coefficient) string {
	if !c.Defined {
		return "n/a"
	}
	return p.Sprintf("%.2f", c.R)
}

// heatColor maps a coefficient in [-1, 1] onto a blue-white-red diverging
// scale and returns a CSS hex colour. Undefined coefficients are grey.
func heatColor(c analysis.Coefficient) string {
	if !c.Defined {
		return "#d9d9d9"
	}
	cold := [3]float64{59, 76, 192}
	mid := [3]float64{221, 221, 221}
	warm := [3]float64{180, 4, 38}

	r := math.Max(-1, math.Min(1, c.R))
	from, to, t := mid, warm, r
	if r < 0 {
		from, to, t = mid, cold, -r
	}
	var rgb [3]int
	for i := range rgb {
		rgb[i] = int(math.Round(from[i] + (to[i]-from[i])*t))
	}
	return fmt.Sprintf("#%02x%02x%02x", rgb[0], rgb[1], rgb[2])
}
