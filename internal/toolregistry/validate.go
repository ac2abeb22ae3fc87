package toolregistry

import "fmt"

// validate checks raw against fields, applying defaults for omitted
// optional fields. On success it returns a clean args map; on failure it
// returns the field-path error list named in §4.E ("ValidationError with
// a field-path list, without invoking the handler").
func validate(fields []Field, raw map[string]any) (map[string]any, []string) {
	var errs []string
	out := make(map[string]any, len(fields))

	for _, f := range fields {
		v, present := raw[f.Name]
		if !present {
			if f.Required {
				errs = append(errs, f.Name+": required field missing")
				continue
			}
			out[f.Name] = f.Default
			continue
		}
		coerced, ok := coerce(v, f.Type)
		if !ok {
			errs = append(errs, fmt.Sprintf("%s: expected %s", f.Name, f.Type))
			continue
		}
		out[f.Name] = coerced
	}
	return out, errs
}

func coerce(v any, t FieldType) (any, bool) {
	switch t {
	case TypeString:
		s, ok := v.(string)
		return s, ok
	case TypeBool:
		b, ok := v.(bool)
		return b, ok
	case TypeInt:
		switch n := v.(type) {
		case float64: // encoding/json decodes all JSON numbers as float64
			return int(n), true
		case int:
			return n, true
		}
		return nil, false
	case TypeStringSlice:
		raw, ok := v.([]any)
		if !ok {
			return nil, false
		}
		out := make([]string, 0, len(raw))
		for _, item := range raw {
			s, ok := item.(string)
			if !ok {
				return nil, false
			}
			out = append(out, s)
		}
		return out, true
	default:
		return nil, false
	}
}

func argString(args map[string]any, key string) string {
	if v, ok := args[key].(string); ok {
		return v
	}
	return ""
}

func argInt(args map[string]any, key string) int {
	if v, ok := args[key].(int); ok {
		return v
	}
	return 0
}

func argBool(args map[string]any, key string) bool {
	if v, ok := args[key].(bool); ok {
		return v
	}
	return false
}

func argStringSlice(args map[string]any, key string) []string {
	if v, ok := args[key].([]string); ok {
		return v
	}
	return nil
}
