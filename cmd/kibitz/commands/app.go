package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/kibitz/kibitz/pkg/config"
	"github.com/kibitz/kibitz/pkg/engine"
	"github.com/kibitz/kibitz/pkg/stores"
	"github.com/kibitz/kibitz/pkg/telemetry"
)

// app bundles what a command needs: settings, telemetry and the registry location.
type app struct {
	settingsPath string
	settings     *config.Settings
	tel          *telemetry.Telemetry
	logger       zerolog.Logger
	out          io.Writer
	errOut       io.Writer
}

func settingsFile() string {
	if configPath != "" {
		return configPath
	}
	return config.DefaultSettingsFile
}

// loadApp reads the settings and sets up telemetry. Status events are echoed
// to the command's error stream.
func loadApp(cmd *cobra.Command) (*app, error) {
	path := settingsFile()
	settings, err := config.LoadSettings(path)
	if err != nil {
		return nil, err
	}
	if enginesPath != "" {
		settings.EnginesFile = enginesPath
	}
	if verbose {
		settings.Logging.Level = "debug"
	}

	tcfg := settings.TelemetryConfig()
	tel, err := telemetry.NewTelemetry(tcfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize telemetry: %w", err)
	}

	a := &app{
		settingsPath: path,
		settings:     settings,
		tel:          tel,
		logger:       tel.Logger.NewComponentLogger("cli").Zerolog(),
		out:          cmd.OutOrStdout(),
		errOut:       cmd.ErrOrStderr(),
	}

	tel.Events.Subscribe(func(ev telemetry.Event) {
		fmt.Fprintf(a.errOut, "%s: %s\n", ev.Level, ev.Message)
	}, telemetry.FilterByType(telemetry.EventTypeStatus))

	return a, nil
}

func (a *app) close() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := a.tel.Shutdown(ctx); err != nil {
		a.logger.Warn().Err(err).Msg("Telemetry shutdown failed")
	}
}

func (a *app) registry() (*config.Registry, error) {
	reg, err := config.ReadFileOrEmpty(a.settings.EnginesFile)
	if err != nil {
		return nil, err
	}
	a.logger.Debug().Str("file", a.settings.EnginesFile).Int("engines", reg.Len()).Msg("Loaded engine registry")
	return reg, nil
}

func (a *app) saveRegistry(reg *config.Registry) error {
	if err := config.WriteFile(a.settings.EnginesFile, reg); err != nil {
		return err
	}
	a.logger.Debug().Str("file", a.settings.EnginesFile).Int("engines", reg.Len()).Msg("Saved engine registry")
	return nil
}

// engineOptions wires telemetry and the configured timings into engines.
func (a *app) engineOptions() []engine.Option {
	return []engine.Option{
		engine.WithStatusSink(a.tel.Events),
		engine.WithLogger(a.tel.Logger.Zerolog()),
		engine.WithMetrics(a.tel.Metrics),
		engine.WithTracer(a.tel.Tracer),
		engine.WithHandshakeTimeout(a.settings.Engine.HandshakeTimeout),
		engine.WithSettleDelay(a.settings.Engine.SettleDelay),
		engine.WithWriteTimeout(a.settings.Engine.WriteTimeout),
	}
}

func (a *app) openStore(ctx context.Context) (*stores.SQLiteStore, error) {
	store, err := stores.Open(ctx, a.settings.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to open database %s: %w", a.settings.Database, err)
	}
	return store, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
