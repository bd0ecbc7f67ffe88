package client

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

const (
	outputText = "text"
	outputJSON = "json"
)

// outputFormat reads --output, falling back to the output key of config.yaml
// when the flag was not given.
func outputFormat(cmd *cobra.Command) (string, error) {
	format, _ := cmd.Flags().GetString("output")
	if f := cmd.Flags().Lookup("output"); f != nil && !f.Changed {
		if cfg, err := LoadGlobalConfig(); err == nil && cfg != nil && cfg.Output != "" {
			format = cfg.Output
		}
	}
	switch format {
	case "", outputText:
		return outputText, nil
	case outputJSON:
		return outputJSON, nil
	}
	return "", fmt.Errorf("unknown output format %q (expected json or text)", format)
}

// render writes v as indented JSON or calls text, depending on --output.
func render(cmd *cobra.Command, v interface{}, text func(w io.Writer)) error {
	format, err := outputFormat(cmd)
	if err != nil {
		return err
	}
	w := cmd.OutOrStdout()
	if format == outputJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		enc.SetEscapeHTML(false)
		return enc.Encode(v)
	}
	text(w)
	return nil
}
