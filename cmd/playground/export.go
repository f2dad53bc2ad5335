package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/codeper/playground/internal/export"
	"github.com/codeper/playground/internal/store"
	"github.com/codeper/playground/internal/workspace"
)

func newExportCmd(load configLoader) *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the stored project as a zip of index.html, styles.css and script.js",
		Long: "Export reads the project from the configured store and writes the same\n" +
			"archive the download endpoint serves. The default file name is derived\n" +
			"from the project title; use --out - for stdout.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			if cfg.Store.Ephemeral {
				return fmt.Errorf("export: the store is ephemeral, nothing is stored")
			}
			st, err := store.OpenFile(cfg.Store.Path, cfg.Store.QuotaBytes, nil)
			if err != nil {
				return err
			}
			project, err := workspace.LoadProject(st)
			if err != nil {
				fmt.Fprintln(cmd.ErrOrStderr(), "warning:", err)
			}

			if out == "-" {
				return export.Write(cmd.OutOrStdout(), project.Fragments(), time.Now())
			}
			if out == "" {
				out = export.Filename(project.Title)
			}
			data, err := export.Build(project.Fragments(), time.Now())
			if err != nil {
				return err
			}
			if err := os.WriteFile(out, data, 0o644); err != nil {
				return fmt.Errorf("export: %w", err)
			}
			abs, _ := filepath.Abs(out)
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", abs)
			return err
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "output path, - for stdout")
	return cmd
}
