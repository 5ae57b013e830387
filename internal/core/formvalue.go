package core

import (
	"bytes"
	"encoding/json"
)

// FormValue is a form field stored as text whatever its JSON type.
//
//	"Pune"       -> Pune
//	9876543210   -> 9876543210 (as written, no float rounding)
//	true         -> true
//	null         -> ""
//	{"a":1}      -> {"a":1} (compacted)
type FormValue string

func (v *FormValue) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case len(data) == 0 || bytes.Equal(data, []byte("null")):
		*v = ""
	case data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*v = FormValue(s)
	case data[0] == '{' || data[0] == '[':
		var buf bytes.Buffer
		if err := json.Compact(&buf, data); err != nil {
			return err
		}
		*v = FormValue(buf.String())
	default:
		// numbers and booleans keep their literal text
		*v = FormValue(data)
	}
	return nil
}
