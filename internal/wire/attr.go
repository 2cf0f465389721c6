package wire

import "strconv"

// Attr is the DynamoDB attribute-value tagged union. Exactly one field
// is set; omitempty keeps the wire form to a single-key object.
type Attr struct {
	S    *string         `json:"S,omitempty"`
	N    *string         `json:"N,omitempty"`
	B    []byte          `json:"B,omitempty"`
	SS   []string        `json:"SS,omitempty"`
	NS   []string        `json:"NS,omitempty"`
	BS   [][]byte        `json:"BS,omitempty"`
	M    map[string]Attr `json:"M,omitempty"`
	L    []Attr          `json:"L,omitempty"`
	NULL *bool           `json:"NULL,omitempty"`
	BOOL *bool           `json:"BOOL,omitempty"`
}

// Item is a named attribute set, the wire form of one record.
type Item map[string]Attr

// String returns a string attribute.
func String(s string) Attr { return Attr{S: &s} }

// Number returns a number attribute. DynamoDB transmits numbers as
// strings.
func Number(n int64) Attr {
	s := strconv.FormatInt(n, 10)
	return Attr{N: &s}
}

// Bool returns a boolean attribute.
func Bool(b bool) Attr { return Attr{BOOL: &b} }

// Null returns the null attribute.
func Null() Attr {
	t := true
	return Attr{NULL: &t}
}

// Str returns the string value, or "" when the attribute is not a
// string.
func (a Attr) Str() string {
	if a.S == nil {
		return ""
	}
	return *a.S
}

// Int returns the number value as an int64, or 0 when the attribute is
// not a number or does not parse.
func (a Attr) Int() int64 {
	if a.N == nil {
		return 0
	}
	n, _ := strconv.ParseInt(*a.N, 10, 64)
	return n
}
