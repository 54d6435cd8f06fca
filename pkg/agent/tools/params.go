package tools

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/entrhq/webpilot/pkg/types"
)

// ParamType is the JSON type of a tool parameter.
type ParamType string

const (
	ParamString  ParamType = "string"
	ParamNumber  ParamType = "number"
	ParamInteger ParamType = "integer"
	ParamBoolean ParamType = "boolean"
)

// ParamSpec declares one tool parameter.
type ParamSpec struct {
	Name        string
	Type        ParamType
	Description string
	Required    bool
}

// Params holds validated parameter values, converted to their declared
// types: string, float64, int or bool.
type Params map[string]interface{}

// String returns the string parameter name, or "".
func (p Params) String(name string) string {
	s, _ := p[name].(string)
	return s
}

// Float returns the number parameter name, or 0.
func (p Params) Float(name string) float64 {
	f, _ := p[name].(float64)
	return f
}

// Int returns the integer parameter name, or 0.
func (p Params) Int(name string) int {
	i, _ := p[name].(int)
	return i
}

// Bool returns the boolean parameter name, or false.
func (p Params) Bool(name string) bool {
	b, _ := p[name].(bool)
	return b
}

// Has reports whether name was supplied.
func (p Params) Has(name string) bool {
	_, ok := p[name]
	return ok
}

// normalizeParams checks raw against specs and converts each value to its
// declared type. Unknown parameters are dropped.
func normalizeParams(toolName string, specs []ParamSpec, raw map[string]interface{}) (Params, error) {
	params := make(Params, len(specs))
	for _, spec := range specs {
		v, ok := raw[spec.Name]
		if !ok || v == nil {
			if spec.Required {
				return nil, types.NewError(types.ErrorKindValidation,
					"%s: missing required parameter %q", toolName, spec.Name)
			}
			continue
		}

		converted, ok := convertParam(spec.Type, v)
		if !ok {
			return nil, types.NewError(types.ErrorKindValidation,
				"%s: parameter %q must be a %s, got %T", toolName, spec.Name, spec.Type, v)
		}
		if s, isString := converted.(string); isString && spec.Required && strings.TrimSpace(s) == "" {
			return nil, types.NewError(types.ErrorKindValidation,
				"%s: parameter %q must not be empty", toolName, spec.Name)
		}
		params[spec.Name] = converted
	}
	return params, nil
}

// convertParam converts v to the Go type of t. Numeric and boolean strings
// are accepted because XML plans carry every value as text.
func convertParam(t ParamType, v interface{}) (interface{}, bool) {
	switch t {
	case ParamString:
		s, ok := v.(string)
		return s, ok
	case ParamNumber:
		f, ok := toFloat(v)
		return f, ok
	case ParamInteger:
		f, ok := toFloat(v)
		if !ok || f != math.Trunc(f) {
			return nil, false
		}
		return int(f), true
	case ParamBoolean:
		switch b := v.(type) {
		case bool:
			return b, true
		case string:
			parsed, err := strconv.ParseBool(strings.TrimSpace(b))
			return parsed, err == nil
		}
	}
	return nil, false
}

func toFloat(v interface{}) (float64, bool) {
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int64:
		f = float64(n)
	case json.Number:
		parsed, err := n.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}
