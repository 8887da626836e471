package config

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// FlexInt is an integer that also accepts a numeric JSON string
type FlexInt int

// UnmarshalJSON accepts 200 or "200"
func (n *FlexInt) UnmarshalJSON(data []byte) error {
	var i int
	if err := json.Unmarshal(data, &i); err == nil {
		*n = FlexInt(i)
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("expected integer, got %s", data)
	}
	i, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return fmt.Errorf("expected integer, got %q", s)
	}
	*n = FlexInt(i)
	return nil
}

// Flag is a boolean that is written as "true"/"false" and read from either
// a JSON string or a JSON boolean.
type Flag bool

// String returns the query-string form of the flag
func (f Flag) String() string {
	return strconv.FormatBool(bool(f))
}

// MarshalJSON writes the flag as a string
func (f Flag) MarshalJSON() ([]byte, error) {
	return json.Marshal(f.String())
}

// UnmarshalJSON accepts true, "true", "True", "1" and their negatives
func (f *Flag) UnmarshalJSON(data []byte) error {
	var b bool
	if err := json.Unmarshal(data, &b); err == nil {
		*f = Flag(b)
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("expected boolean, got %s", data)
	}
	b, err := strconv.ParseBool(strings.TrimSpace(s))
	if err != nil {
		return fmt.Errorf("expected boolean, got %q", s)
	}
	*f = Flag(b)
	return nil
}

// MarshalYAML renders the flag as a string, matching the JSON file
func (f Flag) MarshalYAML() (interface{}, error) {
	return f.String(), nil
}
