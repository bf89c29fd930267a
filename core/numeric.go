package core

import (
	"encoding/json"
	"strconv"
	"strings"
)

// Source values treated as null when they appear where a number is expected.
var nullPlaceholders = map[string]bool{
	"":    true,
	"—":   true,
	"-":   true,
	"NA":  true,
	"N/A": true,
}

// NullFloat is a nullable float64 with lenient JSON decoding.
// It accepts numbers, numeric strings, placeholder strings and null.
type NullFloat struct {
	Value float64
	Valid bool
}

// Float returns the value as a nullable pointer for database parameters.
func (n NullFloat) Float() *float64 {
	if !n.Valid {
		return nil
	}
	v := n.Value
	return &v
}

// UnmarshalJSON implements json.Unmarshaler.
// Unparseable values decode as null rather than failing the record.
func (n *NullFloat) UnmarshalJSON(data []byte) error {
	n.Valid = false
	s := string(data)
	if s == "null" {
		return nil
	}

	if strings.HasPrefix(s, `"`) {
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			return nil
		}
		str = strings.TrimSpace(str)
		if nullPlaceholders[str] {
			return nil
		}
		v, err := strconv.ParseFloat(str, 64)
		if err != nil {
			return nil
		}
		n.Value = v
		n.Valid = true
		return nil
	}

	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return nil
	}
	n.Value = v
	n.Valid = true
	return nil
}

// MarshalJSON implements json.Marshaler.
func (n NullFloat) MarshalJSON() ([]byte, error) {
	if !n.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(n.Value)
}

// NullInt is a nullable int64 with lenient JSON decoding.
// Fractional source values truncate toward zero, matching how the corpus
// encodes counts as floats in places.
type NullInt struct {
	Value int64
	Valid bool
}

// Int returns the value as a nullable pointer for database parameters.
func (n NullInt) Int() *int64 {
	if !n.Valid {
		return nil
	}
	v := n.Value
	return &v
}

// UnmarshalJSON implements json.Unmarshaler.
// Unparseable values decode as null rather than failing the record.
func (n *NullInt) UnmarshalJSON(data []byte) error {
	n.Valid = false
	s := string(data)
	if s == "null" {
		return nil
	}

	if strings.HasPrefix(s, `"`) {
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			return nil
		}
		str = strings.TrimSpace(str)
		if nullPlaceholders[str] {
			return nil
		}
		v, err := strconv.ParseFloat(str, 64)
		if err != nil {
			return nil
		}
		n.Value = int64(v)
		n.Valid = true
		return nil
	}

	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return nil
	}
	n.Value = int64(v)
	n.Valid = true
	return nil
}

// MarshalJSON implements json.Marshaler.
func (n NullInt) MarshalJSON() ([]byte, error) {
	if !n.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(n.Value)
}
