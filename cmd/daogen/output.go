package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"
)

// writeOutput encodes v to w in the --output format.
func writeOutput(w io.Writer, v any) error {
	switch strings.ToLower(outputFormat) {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case "", "yaml", "yml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unsupported output format %q (use yaml or json)", outputFormat)
	}
}

// parseExclude turns alias.column entries into per-alias exclusions. A bare
// column applies to the unprefixed root entity.
func parseExclude(entries []string) map[string][]string {
	if len(entries) == 0 {
		return nil
	}
	out := make(map[string][]string)
	for _, e := range entries {
		alias, column := "", e
		if i := strings.LastIndex(e, "."); i >= 0 {
			alias, column = e[:i], e[i+1:]
		}
		out[alias] = append(out[alias], column)
	}
	return out
}

// stringArgs widens positional arguments to bind values.
func stringArgs(args []string) []any {
	out := make([]any, len(args))
	for i, a := range args {
		out[i] = a
	}
	return out
}

func stringParams(params map[string]string) map[string]any {
	if len(params) == 0 {
		return nil
	}
	out := make(map[string]any, len(params))
	for k, v := range params {
		out[k] = v
	}
	return out
}
