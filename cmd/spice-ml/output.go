package main

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/Veraticus/spice-categorizer/internal/common"
)

// Output formats for reports.
const (
	formatTable = "table"
	formatYAML  = "yaml"
)

func checkFormat(format string) error {
	switch format {
	case formatTable, formatYAML:
		return nil
	default:
		return common.NewUserError(fmt.Sprintf("Unknown format %q (use table or yaml)", format), nil)
	}
}

func writeYAML(w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to encode yaml: %w", err)
	}
	return enc.Close()
}
