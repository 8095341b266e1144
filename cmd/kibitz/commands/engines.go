package commands

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/kibitz/kibitz/pkg/analysis"
	"github.com/kibitz/kibitz/pkg/config"
	"github.com/kibitz/kibitz/pkg/option"
	"github.com/kibitz/kibitz/pkg/protocol"
)

func newEnginesCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "engines",
		Aliases: []string{"engine"},
		Short:   "Manage the engine registry",
		Long: `List, add, remove, rename and configure registered engines.

Each engine has a binary, a protocol (uci or winboard) and the options it
reported during detection. Option values set here are sent to the engine
every time it starts.`,
	}

	cmd.AddCommand(newEnginesListCommand())
	cmd.AddCommand(newEnginesShowCommand())
	cmd.AddCommand(newEnginesAddCommand())
	cmd.AddCommand(newEnginesRemoveCommand())
	cmd.AddCommand(newEnginesRenameCommand())
	cmd.AddCommand(newEnginesSetCommand())

	return cmd
}

// engineView is the JSON form of a registry entry.
type engineView struct {
	Name     string       `json:"name"`
	Binary   string       `json:"bin"`
	Args     []string     `json:"args,omitempty"`
	Protocol string       `json:"proto"`
	Analysis bool         `json:"analysis"`
	Options  []optionView `json:"options,omitempty"`
}

type optionView struct {
	Name    string   `json:"name"`
	Type    string   `json:"type"`
	Value   string   `json:"value"`
	Default string   `json:"default"`
	Min     *int     `json:"min,omitempty"`
	Max     *int     `json:"max,omitempty"`
	Vars    []string `json:"vars,omitempty"`
}

func newEngineView(cfg *config.EngineConfig, withOptions bool) engineView {
	v := engineView{
		Name:     cfg.Name,
		Binary:   cfg.Binary,
		Args:     cfg.Args,
		Protocol: cfg.Protocol.String(),
		Analysis: analysis.Eligible(cfg),
	}
	if !withOptions {
		return v
	}
	cfg.Options.Each(func(name string, opt option.Option) bool {
		ov := optionView{
			Name:    name,
			Type:    string(opt.Kind()),
			Value:   opt.ValueString(),
			Default: opt.DefaultString(),
		}
		switch o := opt.(type) {
		case *option.Spin:
			ov.Min, ov.Max = &o.Min, &o.Max
		case *option.Combo:
			ov.Vars = o.Vars
		case *option.Unknown:
			ov.Type = o.Type
		}
		v.Options = append(v.Options, ov)
		return true
	})
	return v
}

func newEnginesListCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List registered engines",
		Args:    cobra.NoArgs,
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

			views := []engineView{}
			reg.Each(func(cfg *config.EngineConfig) bool {
				views = append(views, newEngineView(cfg, false))
				return true
			})

			if jsonOutput {
				return printJSON(a.out, views)
			}
			if len(views) == 0 {
				fmt.Fprintln(a.out, "No engines registered")
				return nil
			}

			tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "NAME\tPROTO\tBINARY\tOPTIONS")
			reg.Each(func(cfg *config.EngineConfig) bool {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%d\n", cfg.Name, cfg.Protocol, cfg.Binary, cfg.Options.Len())
				return true
			})
			return tw.Flush()
		},
	}
}

func newEnginesShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show <name>",
		Short: "Show an engine and its options",
		Args:  cobra.ExactArgs(1),
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

			view := newEngineView(cfg, true)
			if jsonOutput {
				return printJSON(a.out, view)
			}
			printEngine(a.out, view)
			return nil
		},
	}
}

func printEngine(w io.Writer, v engineView) {
	fmt.Fprintf(w, "Name:     %s\n", v.Name)
	fmt.Fprintf(w, "Binary:   %s\n", v.Binary)
	if len(v.Args) > 0 {
		fmt.Fprintf(w, "Args:     %s\n", strings.Join(v.Args, " "))
	}
	fmt.Fprintf(w, "Protocol: %s\n", v.Protocol)
	if !v.Analysis {
		fmt.Fprintln(w, "Analysis: not supported")
	}

	if len(v.Options) == 0 {
		fmt.Fprintln(w, "\nNo options, run `kibitz detect` to discover them")
		return
	}

	fmt.Fprintln(w)
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "OPTION\tTYPE\tVALUE\tDEFAULT\tDOMAIN")
	for _, o := range v.Options {
		domain := ""
		switch {
		case o.Min != nil:
			domain = fmt.Sprintf("%d..%d", *o.Min, *o.Max)
		case len(o.Vars) > 0:
			domain = strings.Join(o.Vars, "|")
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", o.Name, o.Type, o.Value, o.Default, domain)
	}
	_ = tw.Flush()
}

func newEnginesAddCommand() *cobra.Command {
	var (
		binary string
		proto  string
		args   []string
	)

	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Register an engine",
		Long: `Register an engine binary under a name.

The options are empty until the engine is detected; add runs no process.`,
		Example: `  kibitz engines add stockfish --bin /usr/bin/stockfish
  kibitz engines add crafty --bin /usr/games/crafty --proto winboard`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, pos []string) error {
			p, err := protocol.ParseProtocol(proto)
			if err != nil {
				return err
			}

			a, err := loadApp(cmd)
			if err != nil {
				return err
			}
			defer a.close()

			reg, err := a.registry()
			if err != nil {
				return err
			}

			cfg := config.NewEngineConfig(pos[0], binary, p)
			cfg.Args = args
			if err := reg.Add(cfg); err != nil {
				return err
			}
			if err := a.saveRegistry(reg); err != nil {
				return err
			}

			a.logger.Info().Str("engine", cfg.Name).Str("binary", cfg.Binary).Msg("Engine registered")
			fmt.Fprintf(a.out, "✓ Added engine %s\n", cfg.Name)
			return nil
		},
	}

	cmd.Flags().StringVar(&binary, "bin", "", "engine binary path")
	cmd.Flags().StringVar(&proto, "proto", "uci", "protocol: uci or winboard")
	cmd.Flags().StringArrayVar(&args, "arg", nil, "argument passed to the engine (repeatable)")
	_ = cmd.MarkFlagRequired("bin")

	return cmd
}

func newEnginesRemoveCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "remove <name>",
		Aliases: []string{"rm"},
		Short:   "Remove an engine",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return editRegistry(cmd, func(a *app, reg *config.Registry) error {
				if err := reg.Remove(args[0]); err != nil {
					return err
				}
				fmt.Fprintf(a.out, "✓ Removed engine %s\n", args[0])
				return nil
			})
		},
	}
}

func newEnginesRenameCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "rename <old> <new>",
		Short: "Rename an engine",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return editRegistry(cmd, func(a *app, reg *config.Registry) error {
				if err := reg.Rename(args[0], args[1]); err != nil {
					return err
				}
				fmt.Fprintf(a.out, "✓ Renamed engine %s to %s\n", args[0], args[1])
				return nil
			})
		},
	}
}

func newEnginesSetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "set <name> <option> <value>",
		Short: "Set an option value",
		Long: `Set the value of a discovered option.

Spin values are clamped into the option's range; combo values must be one of
its choices. Use "" to clear a string option.`,
		Example: `  kibitz engines set stockfish Hash 512
  kibitz engines set stockfish SyzygyPath ""`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return editRegistry(cmd, func(a *app, reg *config.Registry) error {
				cfg, err := reg.Get(args[0])
				if err != nil {
					return err
				}
				if err := cfg.SetOption(args[1], args[2]); err != nil {
					return err
				}
				opt, _ := cfg.Options.Get(args[1])
				fmt.Fprintf(a.out, "✓ %s %s = %s\n", cfg.Name, args[1], opt.ValueString())
				return nil
			})
		},
	}
}

// editRegistry loads the registry, applies fn and saves it when fn succeeds.
func editRegistry(cmd *cobra.Command, fn func(a *app, reg *config.Registry) error) error {
	a, err := loadApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	reg, err := a.registry()
	if err != nil {
		return err
	}
	if err := fn(a, reg); err != nil {
		return err
	}
	return a.saveRegistry(reg)
}
