package commands

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/kibitz/kibitz/pkg/config"
	"github.com/kibitz/kibitz/pkg/stores"
)

func newInitCommand() *cobra.Command {
	var (
		force  bool
		format string
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize a kibitz workspace",
		Long: `Write a default settings file, an empty engine registry and the analysis
database next to it.

Existing files are kept unless --force is given.`,
		Example: `  # Initialize in the current directory
  kibitz init

  # Keep the registry as YAML
  kibitz init --format yaml --config ~/.config/kibitz/kibitz.yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := settingsFile()
			dir := filepath.Dir(path)
			out := cmd.OutOrStdout()

			log.Info().Str("config", path).Str("format", format).Msg("Initializing workspace")

			settings := config.DefaultSettings()
			switch format {
			case "xml":
			case "yaml", "toml":
				settings.EnginesFile = "engines." + format
			default:
				return fmt.Errorf("unknown registry format %q (want xml, yaml or toml)", format)
			}

			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("failed to create directory %s: %w", dir, err)
			}

			written, err := writeIfMissing(path, force, func() error {
				return config.SaveSettings(path, settings)
			})
			if err != nil {
				return err
			}
			report(out, written, "settings", path)

			enginesFile := filepath.Join(dir, settings.EnginesFile)
			if enginesPath != "" {
				enginesFile = enginesPath
			}
			written, err = writeIfMissing(enginesFile, force, func() error {
				return config.WriteFile(enginesFile, config.NewRegistry())
			})
			if err != nil {
				return err
			}
			report(out, written, "engine registry", enginesFile)

			dbPath := filepath.Join(dir, settings.Database)
			store, err := stores.Open(cmd.Context(), dbPath)
			if err != nil {
				return fmt.Errorf("failed to initialize database: %w", err)
			}
			if err := store.Close(); err != nil {
				return err
			}
			fmt.Fprintf(out, "✓ Initialized database: %s\n", dbPath)

			fmt.Fprintf(out, "\nAdd an engine with:\n  kibitz engines add stockfish --bin /usr/bin/stockfish\n")
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "overwrite existing files")
	cmd.Flags().StringVar(&format, "format", "xml", "engine registry format: xml, yaml or toml")

	return cmd
}

func writeIfMissing(path string, force bool, write func() error) (bool, error) {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return false, nil
		} else if !errors.Is(err, fs.ErrNotExist) {
			return false, err
		}
	}
	if err := write(); err != nil {
		return false, err
	}
	return true, nil
}

func report(out io.Writer, written bool, what, path string) {
	if written {
		fmt.Fprintf(out, "✓ Created %s: %s\n", what, path)
		return
	}
	fmt.Fprintf(out, "• Kept existing %s: %s\n", what, path)
}
