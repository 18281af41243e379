// Package popup compiles the Handlebars templates used for feature popups
// and layer attribution, with the number formatting helpers the layer
// authors rely on.
package popup

import (
	"fmt"
	"strconv"
	"sync"

	"github.com/aymerick/raymond"
)

// NotLoaded is the template text observed before a template arrives.
const NotLoaded = "TEMPLATE NOT LOADED"

// Renderer turns a data context into text.
type Renderer func(data any) string

var registerOnce sync.Once

// RegisterHelpers installs float0/2/4, percentage0/2 and dollars0/2.
// raymond helpers are global, so this runs once per process.
func RegisterHelpers() {
	registerOnce.Do(func() {
		for name, fn := range Helpers {
			raymond.RegisterHelper(name, fn)
		}
	})
}

// Helpers are the named number formatters available to templates.
var Helpers = map[string]func(v any) string{
	"float0":      func(v any) string { return fixed(v, 0) },
	"float2":      func(v any) string { return fixed(v, 2) },
	"float4":      func(v any) string { return fixed(v, 4) },
	"percentage0": func(v any) string { return fixed(v, 0) + "%" },
	"percentage2": func(v any) string { return fixed(v, 2) + "%" },
	"dollars0":    func(v any) string { return "$" + fixed(v, 0) },
	"dollars2":    func(v any) string { return "$" + fixed(v, 2) },
}

func fixed(v any, decimals int) string {
	n, ok := number(v)
	if !ok {
		return "NaN"
	}
	return strconv.FormatFloat(n, 'f', decimals, 64)
}

func number(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case string:
		f, err := strconv.ParseFloat(t, 64)
		return f, err == nil
	}
	return 0, false
}

// Compile parses template text. A template that fails to render yields the
// error text rather than aborting the caller.
func Compile(text string) (Renderer, error) {
	RegisterHelpers()
	tpl, err := raymond.Parse(text)
	if err != nil {
		return nil, fmt.Errorf("compiling template: %w", err)
	}
	return func(data any) string {
		out, err := tpl.Exec(data)
		if err != nil {
			return fmt.Sprintf("template error: %v", err)
		}
		return out
	}, nil
}
