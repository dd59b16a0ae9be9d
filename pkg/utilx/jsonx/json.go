package jsonx

import (
	"bytes"
	"io"

	"github.com/goccy/go-json"
	"github.com/pkg/errors"
)

// ParseJSON parses the JSON data into a map
func ParseJSON(jsonData []byte) (map[string]interface{}, error) {
	var event map[string]interface{}
	if err := json.Unmarshal(jsonData, &event); err != nil {
		return nil, errors.WithMessage(err, "failed to parse JSON data")
	}

	return event, nil
}

// ParseJSONInto decodes the JSON data into a new value of type T.
// Unknown fields are rejected so that typos in hand written input are reported.
func ParseJSONInto[T any](jsonData []byte) (T, error) {
	var target T

	dec := json.NewDecoder(bytes.NewReader(jsonData))
	dec.DisallowUnknownFields()

	if err := dec.Decode(&target); err != nil {
		return target, errors.WithMessage(err, "failed to unmarshal JSON data")
	}

	return target, nil
}

// WriteIndented encodes v as indented JSON followed by a newline.
func WriteIndented(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	return errors.WithMessage(enc.Encode(v), "failed to encode JSON")
}
