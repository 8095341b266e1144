package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/kibitz/kibitz/pkg/analysis"
	"github.com/kibitz/kibitz/pkg/config"
	"github.com/kibitz/kibitz/pkg/engine"
	"github.com/kibitz/kibitz/pkg/stores"
	"github.com/kibitz/kibitz/pkg/telemetry"
)

type analyseOptions struct {
	fen      string
	moves    string
	duration time.Duration
	interval time.Duration
	noRecord bool
	noWatch  bool
}

func newAnalyseCommand() *cobra.Command {
	var opts analyseOptions

	cmd := &cobra.Command{
		Use:     "analyse <name>",
		Aliases: []string{"analyze"},
		Short:   "Analyse a position with an engine",
		Long: `Start the engine, send its options and run an infinite search on a position.

The current statistics and up to five principal variations are printed while
the search runs. The search ends after --duration, or on interrupt when the
duration is zero. Changing the engine's options in the registry file while the
search runs re-sends them and restarts the search.

Sessions are recorded in the database unless --no-record is given or recording
is disabled in the settings.`,
		Example: `  # Analyse the start position for ten seconds
  kibitz analyse stockfish --duration 10s

  # Analyse after 1. e4 e5 until interrupted
  kibitz analyse stockfish --moves "e2e4 e7e5"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(cmd)
			if err != nil {
				return err
			}
			defer a.close()
			return runAnalyse(cmd.Context(), a, args[0], opts)
		},
	}

	cmd.Flags().StringVar(&opts.fen, "fen", analysis.StartFEN, "position to analyse")
	cmd.Flags().StringVar(&opts.moves, "moves", "", "moves played from the position, in coordinate notation")
	cmd.Flags().DurationVarP(&opts.duration, "duration", "d", 0, "search time, 0 searches until interrupted")
	cmd.Flags().DurationVar(&opts.interval, "interval", 500*time.Millisecond, "refresh interval of the printed state")
	cmd.Flags().BoolVar(&opts.noRecord, "no-record", false, "do not record the session")
	cmd.Flags().BoolVar(&opts.noWatch, "no-watch", false, "do not reload options when the registry file changes")

	return cmd
}

func runAnalyse(ctx context.Context, a *app, name string, opts analyseOptions) (err error) {
	if _, err := analysis.ValidatePosition(opts.fen, opts.moves); err != nil {
		return err
	}

	reg, err := a.registry()
	if err != nil {
		return err
	}
	cfg, err := reg.Get(name)
	if err != nil {
		return err
	}
	if !analysis.Eligible(cfg) {
		return fmt.Errorf("engine %s cannot be used for analysis (protocol %s)", cfg.Name, cfg.Protocol)
	}

	if err := a.tel.StartMetricsServer(); err != nil {
		return err
	}

	op := telemetry.StartOperation(a.tel.WithContext(ctx), "analyse",
		telemetry.AttrEngineName.String(cfg.Name),
		telemetry.AttrFEN.String(opts.fen),
	)
	defer func() { op.End(err) }()

	mgr := engine.NewManager(reg, a.engineOptions()...)
	defer mgr.ExitAll()
	eng, err := mgr.Engine(cfg.Name)
	if err != nil {
		return err
	}

	driverOpts := []analysis.Option{analysis.WithLogger(a.logger)}

	var (
		store   *stores.SQLiteStore
		session *stores.Session
		rec     *stores.SessionRecorder
	)
	if a.settings.Record && !opts.noRecord {
		store, err = a.openStore(ctx)
		if err != nil {
			return err
		}
		defer store.Close()

		session = &stores.Session{Engine: cfg.Name, FEN: opts.fen, Moves: opts.moves}
		if err := store.CreateSession(ctx, session); err != nil {
			return err
		}
		a.tel.Events.Subscribe(stores.EventRecorder(store, a.logger), nil)
		rec = stores.NewSessionRecorder(store, session.ID)
		driverOpts = append(driverOpts, analysis.WithRecorder(rec))
	}

	driver := analysis.NewDriver(eng, driverOpts...)
	driver.Start()

	started := time.Now()
	runErr := analyseLoop(ctx, a, mgr, eng, driver, opts)

	if err := eng.Exit(); err != nil && !errors.Is(err, engine.ErrNotRunning) {
		a.logger.Warn().Err(err).Msg("Engine exit failed")
	}
	driver.Close()
	_ = a.tel.Events.PublishEngineStopped(cfg.Name)

	final := driver.Snapshot()
	if jsonOutput {
		_ = printJSON(a.out, final)
	} else {
		fmt.Fprintf(a.out, "\nFinal: %s\n", final)
	}

	if session != nil {
		var msg *string
		if runErr != nil {
			s := runErr.Error()
			msg = &s
		}
		// the command context may already be cancelled
		if err := store.FinishSession(context.Background(), session.ID, msg); err != nil {
			a.logger.Warn().Err(err).Msg("Failed to finish session")
		}
		_ = a.tel.Events.PublishSessionFinished(cfg.Name, session.ID, rec.Count(), time.Since(started))
		fmt.Fprintf(a.errOut, "Session %s recorded with %d lines\n", session.ID, rec.Count())
	}

	return runErr
}

// analyseLoop owns the engine until the search ends. Registry reloads are
// applied here so that only one goroutine drives the engine.
func analyseLoop(ctx context.Context, a *app, mgr *engine.Manager, eng *engine.Engine, driver *analysis.Driver, opts analyseOptions) error {
	name := eng.Name()

	if err := mgr.Start(ctx, name); err != nil {
		return err
	}
	id := eng.Info()
	_ = a.tel.Events.PublishEngineStarted(name, id.Name)

	if err := eng.Search(opts.fen, opts.moves); err != nil {
		return err
	}

	reloads := make(chan *config.Registry, 1)
	if !opts.noWatch {
		watchCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		err := config.Watch(watchCtx, a.settings.EnginesFile, a.logger, func(reg *config.Registry) error {
			select {
			case reloads <- reg:
			default:
				// a reload is already pending; it will read the newest file
			}
			return nil
		})
		if err != nil {
			a.logger.Warn().Err(err).Msg("Option reload disabled")
		}
	}

	var deadline <-chan time.Time
	if opts.duration > 0 {
		timer := time.NewTimer(opts.duration)
		defer timer.Stop()
		deadline = timer.C
	}

	ticker := time.NewTicker(opts.interval)
	defer ticker.Stop()

	printer := newStatePrinter(a.out, jsonOutput)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-deadline:
			if err := eng.StopSearch(); err != nil && !errors.Is(err, engine.ErrNotSearching) {
				return err
			}
			return nil
		case reg := <-reloads:
			if err := reloadOptions(a, eng, driver, reg, opts); err != nil {
				return err
			}
			// the driver state starts over, so its update count does too
			printer.reset()
		case <-ticker.C:
			if eng.State() == engine.StateStopped {
				return fmt.Errorf("engine %s exited during analysis", name)
			}
			printer.print(driver.Snapshot())
		}
	}
}

// reloadOptions copies option values from the reloaded registry, re-sends
// them and restarts the search. Options the engine did not report are ignored.
func reloadOptions(a *app, eng *engine.Engine, driver *analysis.Driver, reg *config.Registry, opts analyseOptions) error {
	fresh, err := reg.Get(eng.Name())
	if err != nil {
		a.logger.Warn().Err(err).Msg("Engine missing from reloaded registry")
		return nil
	}

	if err := eng.StopSearch(); err != nil && !errors.Is(err, engine.ErrNotSearching) {
		return err
	}

	cfg := eng.Config()
	changed := 0
	for _, optName := range fresh.Options.Names() {
		opt, _ := fresh.Options.Get(optName)
		cur, ok := cfg.Options.Get(optName)
		if !ok || cur.ValueString() == opt.ValueString() {
			continue
		}
		if err := cfg.SetOption(optName, opt.ValueString()); err != nil {
			a.logger.Warn().Err(err).Str("option", optName).Msg("Ignoring reloaded option")
			continue
		}
		changed++
	}

	if err := eng.SendOptions(); err != nil {
		return err
	}
	_ = a.tel.Events.PublishOptionsReloaded(eng.Name(), changed)

	driver.Reset()
	return eng.Search(opts.fen, opts.moves)
}

// statePrinter writes analysis snapshots, skipping those that carry no new
// update since the last one written.
type statePrinter struct {
	out     io.Writer
	json    bool
	printed int
}

func newStatePrinter(out io.Writer, asJSON bool) *statePrinter {
	return &statePrinter{out: out, json: asJSON, printed: -1}
}

// print reports whether snap was written.
func (p *statePrinter) print(snap analysis.State) bool {
	if snap.Updates == p.printed {
		return false
	}
	p.printed = snap.Updates
	if p.json {
		_ = printJSON(p.out, snap)
	} else {
		fmt.Fprintln(p.out, snap)
	}
	return true
}

func (p *statePrinter) reset() { p.printed = -1 }
