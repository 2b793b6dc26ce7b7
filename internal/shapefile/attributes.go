package shapefile

import (
	"strconv"
	"strings"

	"github.com/jonas-p/go-shp"
)

// field is a DBF column with its decoded name.
type field struct {
	name      string
	kind      byte
	precision uint8
}

func fields(raw []shp.Field, dec decoder) []field {
	out := make([]field, len(raw))
	for i, f := range raw {
		out[i] = field{
			name:      dec.String(f.String()),
			kind:      f.Fieldtype,
			precision: f.Precision,
		}
	}
	return out
}

func trimValue(s string) string {
	return strings.Trim(s, " \x00")
}

// value converts a raw DBF cell to a JSON friendly value.
// Blank numbers, dates and unknown logicals become nil.
func (f field) value(raw string, dec decoder) any {
	s := trimValue(raw)

	switch f.kind {
	case 'C':
		return dec.String(s)

	case 'N', 'F':
		if s == "" || strings.Trim(s, "*") == "" {
			return nil
		}
		if f.precision == 0 {
			if n, err := strconv.ParseInt(s, 10, 64); err == nil {
				return n
			}
		}
		if v, err := strconv.ParseFloat(s, 64); err == nil {
			return v
		}
		return nil

	case 'L':
		switch s {
		case "T", "t", "Y", "y":
			return true
		case "F", "f", "N", "n":
			return false
		}
		return nil

	case 'D':
		if s == "" || strings.Trim(s, "0") == "" {
			return nil
		}
		if len(s) == 8 {
			if _, err := strconv.Atoi(s); err == nil {
				return s[0:4] + "-" + s[4:6] + "-" + s[6:8]
			}
		}
		return s
	}

	return dec.String(s)
}
