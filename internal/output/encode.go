package output

import (
	"encoding/json"
	"io"

	"gopkg.in/yaml.v3"
)

// Result represents a command result that can be output in multiple formats
type Result interface {
	// Text writes the human-readable representation
	Text(f *Formatter) error
	// Data returns the value serialized for JSON and YAML
	Data() any
}

// Output writes a Result in the formatter's format
func (f *Formatter) Output(r Result) error {
	switch f.format {
	case FormatJSON:
		return WriteJSON(f.writer, r.Data(), f.pretty)
	case FormatYAML:
		return WriteYAML(f.writer, r.Data())
	default:
		return r.Text(f)
	}
}

// WriteJSON writes data as JSON to the given writer
func WriteJSON(w io.Writer, v any, pretty bool) error {
	encoder := json.NewEncoder(w)
	if pretty {
		encoder.SetIndent("", "  ")
	}
	return encoder.Encode(v)
}

// WriteYAML writes data as YAML. Values go through JSON first so the field
// names match the JSON output.
func WriteYAML(w io.Writer, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	var generic any
	if err := yaml.Unmarshal(raw, &generic); err != nil {
		return err
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(generic); err != nil {
		return err
	}
	return enc.Close()
}
