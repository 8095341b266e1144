package commands

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/kibitz/kibitz/pkg/stores"
)

func newHistoryCommand() *cobra.Command {
	var (
		limit  int
		events bool
		engine string
	)

	cmd := &cobra.Command{
		Use:   "history [session-id]",
		Short: "Show recorded analysis sessions",
		Long: `Without arguments, list the most recent analysis sessions. With a session
ID, print the variations recorded during that session. With --events, list
engine events such as start failures and incomplete handshakes.`,
		Example: `  kibitz history --limit 5
  kibitz history 3f2a9c1e-7d4b-4c55-9a61-0b2f8f0e6c11
  kibitz history --events --engine stockfish`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(cmd)
			if err != nil {
				return err
			}
			defer a.close()

			ctx := cmd.Context()
			store, err := a.openStore(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			switch {
			case events:
				var filter *string
				if engine != "" {
					filter = &engine
				}
				list, err := store.ListEvents(ctx, filter, limit)
				if err != nil {
					return err
				}
				if jsonOutput {
					return printJSON(a.out, list)
				}
				tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "TIME\tENGINE\tTYPE\tLEVEL\tMESSAGE")
				for _, ev := range list {
					fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
						ev.Timestamp.Local().Format(time.DateTime), ev.Engine, ev.Type, ev.Level, ev.Message)
				}
				return tw.Flush()

			case len(args) == 1:
				session, err := store.GetSession(ctx, args[0])
				if err != nil {
					return err
				}
				lines, err := store.ListLines(ctx, session.ID)
				if err != nil {
					return err
				}
				if jsonOutput {
					return printJSON(a.out, struct {
						*stores.Session
						Lines []*stores.Line `json:"lines"`
					}{session, lines})
				}
				fmt.Fprintf(a.out, "Session %s (%s)\nEngine: %s\nFEN:    %s\n", session.ID, session.Status, session.Engine, session.FEN)
				if session.Moves != "" {
					fmt.Fprintf(a.out, "Moves:  %s\n", session.Moves)
				}
				if session.Error != nil {
					fmt.Fprintf(a.out, "Error:  %s\n", *session.Error)
				}
				fmt.Fprintln(a.out)
				tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "PV#\tDEPTH\tSCORE\tNODES\tLINE")
				for _, l := range lines {
					fmt.Fprintf(tw, "%d\t%d/%d\t%s\t%d\t%s\n", l.MultiPV, l.Depth, l.SelDepth, formatScore(l), l.Nodes, l.PV)
				}
				return tw.Flush()

			default:
				sessions, err := store.ListSessions(ctx, limit, 0)
				if err != nil {
					return err
				}
				if jsonOutput {
					return printJSON(a.out, sessions)
				}
				if len(sessions) == 0 {
					fmt.Fprintln(a.out, "No sessions recorded")
					return nil
				}
				tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "ID\tENGINE\tSTARTED\tDURATION\tSTATUS")
				for _, s := range sessions {
					duration := "-"
					if s.FinishedAt != nil {
						duration = s.FinishedAt.Sub(s.StartedAt).Round(time.Second).String()
					}
					fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
						s.ID, s.Engine, s.StartedAt.Local().Format(time.DateTime), duration, s.Status)
				}
				return tw.Flush()
			}
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "maximum number of entries")
	cmd.Flags().BoolVar(&events, "events", false, "list engine events instead of sessions")
	cmd.Flags().StringVar(&engine, "engine", "", "only events of this engine (with --events)")

	return cmd
}

func formatScore(l *stores.Line) string {
	switch {
	case l.Mate != nil:
		return fmt.Sprintf("#%d", *l.Mate)
	case l.ScoreCP != nil:
		return fmt.Sprintf("%+d", *l.ScoreCP)
	default:
		return "-"
	}
}
