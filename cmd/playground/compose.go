package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/codeper/playground/internal/preview/composer"
)

func newComposeCmd() *cobra.Command {
	var htmlPath, cssPath, jsPath string

	cmd := &cobra.Command{
		Use:   "compose",
		Short: "Compose HTML, CSS and JS files into the sandbox preview document",
		Long: "Compose reads up to three fragment files and writes the document the\n" +
			"sandbox would mount for them to stdout. Missing flags mean empty fragments.",
		RunE: func(cmd *cobra.Command, args []string) error {
			var f composer.Fragments
			for _, src := range []struct {
				path string
				dst  *string
			}{
				{htmlPath, &f.HTML},
				{cssPath, &f.CSS},
				{jsPath, &f.JS},
			} {
				value, err := readFragment(src.path)
				if err != nil {
					return err
				}
				*src.dst = value
			}
			_, err := io.WriteString(cmd.OutOrStdout(), f.Compose())
			return err
		},
	}
	cmd.Flags().StringVar(&htmlPath, "html", "", "markup fragment file")
	cmd.Flags().StringVar(&cssPath, "css", "", "stylesheet fragment file")
	cmd.Flags().StringVar(&jsPath, "js", "", "script fragment file")
	return cmd
}

func readFragment(path string) (string, error) {
	if path == "" {
		return "", nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read fragment: %w", err)
	}
	return string(data), nil
}
