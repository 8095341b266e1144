package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kibitz/kibitz/pkg/engine"
)

func newDetectCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "detect <name>",
		Short: "Discover an engine's identity and options",
		Long: `Start the engine, run the protocol handshake and store the options it reports.

Values already set for options the engine still reports are kept, clamped into
the new bounds. Options the engine no longer reports are dropped.`,
		Example: `  kibitz detect stockfish`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(cmd)
			if err != nil {
				return err
			}
			defer a.close()

			reg, err := a.registry()
			if err != nil {
				return err
			}
			cfg, err := reg.Get(args[0])
			if err != nil {
				return err
			}

			e := engine.New(cfg, a.engineOptions()...)
			a.logger.Debug().Str("engine", cfg.Name).Str("binary", cfg.Binary).Msg("Detecting engine")

			if err := e.Start(cmd.Context()); err != nil {
				return err
			}
			id := e.Info()
			if err := e.Exit(); err != nil {
				a.logger.Warn().Err(err).Msg("Engine exit failed")
			}

			if err := a.saveRegistry(reg); err != nil {
				return err
			}

			view := newEngineView(cfg, true)
			if jsonOutput {
				return printJSON(a.out, struct {
					ID     string `json:"id"`
					Author string `json:"author"`
					engineView
				}{id.Name, id.Author, view})
			}

			if id.Name != "" {
				fmt.Fprintf(a.out, "✓ %s reports itself as %s", cfg.Name, id.Name)
				if id.Author != "" {
					fmt.Fprintf(a.out, " by %s", id.Author)
				}
				fmt.Fprintln(a.out)
			}
			fmt.Fprintf(a.out, "✓ Stored %d options\n\n", cfg.Options.Len())
			printEngine(a.out, view)
			return nil
		},
	}

	return cmd
}
