package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rendis/nodeforge/internal/logging"
	"github.com/rendis/nodeforge/internal/store"
	"github.com/rendis/nodeforge/internal/validation"
)

var importCmd = &cobra.Command{
	Use:   "import <manifest>...",
	Short: "Load document or asset manifests into the store",
	Long: `Each manifest is YAML or JSON. A manifest with a top-level "containers" list is
stored as macro assets; anything else is read as a Blueprint document.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runImport,
}

func init() {
	rootCmd.AddCommand(importCmd)
}

func runImport(cmd *cobra.Command, args []string) error {
	cfg := loadConfig()
	logger := logging.New(logging.ParseLevel(cfg.LogLevel))

	v, err := validation.NewManifestValidator()
	if err != nil {
		return err
	}
	st, err := store.NewLibSQLStore(cfg.DBPath)
	if err != nil {
		return err
	}
	defer st.Close()
	if err := st.Migrate(cmd.Context()); err != nil {
		return fmt.Errorf("migrate store: %w", err)
	}

	for _, path := range args {
		res, err := importManifestFile(cmd.Context(), st, v, path)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), describeImport(res))
	}

	signalRunningServer(func(format string, args ...any) {
		logger.Debug(fmt.Sprintf(format, args...))
	})
	return nil
}
