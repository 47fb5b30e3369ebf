package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// validateFormat checks the --format flag
func validateFormat(format string) error {
	switch strings.ToLower(format) {
	case "json", "table":
		return nil
	default:
		return fmt.Errorf("unsupported format: %s (supported: json, table)", format)
	}
}

func (o *globalOptions) json() bool {
	return strings.EqualFold(o.format, "json")
}

// render writes v as indented JSON when the json format is selected and
// calls table otherwise
func render(w io.Writer, opts *globalOptions, v any, table func(w io.Writer)) error {
	if opts.json() {
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		return encoder.Encode(v)
	}
	table(w)
	return nil
}
