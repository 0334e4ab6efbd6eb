package eligibility

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// Number is an optional numeric field from the upstream payload. The payer
// API sends some amounts as JSON numbers and others as numeric strings
// ("0.8", "50.00"); both decode to the same value. The original bytes are kept
// so a stored document re-encodes exactly as it was received.
type Number struct {
	val float64
	ok  bool
	raw json.RawMessage
}

// Num returns a present Number holding v.
func Num(v float64) Number {
	return Number{val: v, ok: true}
}

// Valid reports whether the field was present with a parseable value.
func (n Number) Valid() bool { return n.ok }

// Float returns the value and whether it is present.
func (n Number) Float() (float64, bool) { return n.val, n.ok }

// Or returns the value, or def when the field is absent.
func (n Number) Or(def float64) float64 {
	if !n.ok {
		return def
	}
	return n.val
}

// IsZero reports whether the field is entirely absent, for omitzero.
func (n Number) IsZero() bool { return !n.ok && n.raw == nil }

// String formats the value the way the grid shows it: shortest
// representation, no exponent, empty when absent.
func (n Number) String() string {
	if !n.ok {
		return ""
	}
	return formatFloat(n.val)
}

func (n *Number) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	*n = Number{}
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return nil
	}
	n.raw = append(json.RawMessage(nil), b...)

	text := string(b)
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return nil
		}
		text = strings.TrimSpace(s)
	}
	if text == "" {
		return nil
	}
	v, err := strconv.ParseFloat(text, 64)
	if err != nil {
		// Irregular upstream values ("N/A") are kept verbatim but count as absent.
		return nil
	}
	n.val, n.ok = v, true
	return nil
}

func (n Number) MarshalJSON() ([]byte, error) {
	if n.raw != nil {
		return n.raw, nil
	}
	if !n.ok {
		return []byte("null"), nil
	}
	return []byte(formatFloat(n.val)), nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
