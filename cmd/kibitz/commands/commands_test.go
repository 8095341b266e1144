package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kibitz/kibitz/pkg/analysis"
	"github.com/kibitz/kibitz/pkg/config"
	"github.com/kibitz/kibitz/pkg/option"
	"github.com/kibitz/kibitz/pkg/protocol"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()

	cmd := newRootCommand("test", "none", "today")
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func initWorkspace(t *testing.T, extra ...string) string {
	t.Helper()

	cfgPath := filepath.Join(t.TempDir(), "kibitz.yaml")
	_, err := run(t, append([]string{"--config", cfgPath, "init"}, extra...)...)
	require.NoError(t, err)
	return cfgPath
}

func TestInitCreatesWorkspace(t *testing.T) {
	cfgPath := initWorkspace(t)
	dir := filepath.Dir(cfgPath)

	assert.FileExists(t, cfgPath)
	assert.FileExists(t, filepath.Join(dir, "engines.xml"))
	assert.FileExists(t, filepath.Join(dir, "kibitz.db"))

	settings, err := config.LoadSettings(cfgPath)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "engines.xml"), settings.EnginesFile)

	out, err := run(t, "--config", cfgPath, "init")
	require.NoError(t, err)
	assert.Contains(t, out, "Kept existing settings")
}

func TestInitFormats(t *testing.T) {
	cfgPath := initWorkspace(t, "--format", "toml")
	assert.FileExists(t, filepath.Join(filepath.Dir(cfgPath), "engines.toml"))

	_, err := run(t, "--config", filepath.Join(t.TempDir(), "kibitz.yaml"), "init", "--format", "ini")
	assert.ErrorContains(t, err, "unknown registry format")
}

func TestEnginesLifecycle(t *testing.T) {
	cfgPath := initWorkspace(t)

	out, err := run(t, "--config", cfgPath, "engines", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "No engines registered")

	_, err = run(t, "--config", cfgPath, "engines", "add", "sf", "--bin", "/usr/bin/stockfish", "--arg=--quiet")
	require.NoError(t, err)

	_, err = run(t, "--config", cfgPath, "engines", "add", "sf", "--bin", "/usr/bin/stockfish")
	assert.ErrorIs(t, err, config.ErrDuplicate)

	out, err = run(t, "--config", cfgPath, "--json", "engines", "list")
	require.NoError(t, err)
	var views []engineView
	require.NoError(t, json.Unmarshal([]byte(out), &views))
	require.Len(t, views, 1)
	assert.Equal(t, "sf", views[0].Name)
	assert.Equal(t, "uci", views[0].Protocol)
	assert.Equal(t, []string{"--quiet"}, views[0].Args)
	assert.True(t, views[0].Analysis)

	_, err = run(t, "--config", cfgPath, "engines", "rename", "sf", "stockfish")
	require.NoError(t, err)

	out, err = run(t, "--config", cfgPath, "engines", "show", "stockfish")
	require.NoError(t, err)
	assert.Contains(t, out, "/usr/bin/stockfish")
	assert.Contains(t, out, "kibitz detect")

	_, err = run(t, "--config", cfgPath, "engines", "remove", "stockfish")
	require.NoError(t, err)

	_, err = run(t, "--config", cfgPath, "engines", "show", "stockfish")
	assert.ErrorIs(t, err, config.ErrNotFound)
}

func TestEnginesSetOption(t *testing.T) {
	cfgPath := initWorkspace(t)
	enginesFile := filepath.Join(filepath.Dir(cfgPath), "engines.xml")

	reg := config.NewRegistry()
	cfg := config.NewEngineConfig("sf", "/usr/bin/stockfish", protocol.UCI)
	cfg.Options.Put("Hash", option.NewSpin(1, 2048, 16))
	cfg.Options.Put("Style", option.NewCombo([]string{"Solid", "Risky"}, "Solid"))
	require.NoError(t, reg.Add(cfg))
	require.NoError(t, config.WriteFile(enginesFile, reg))

	out, err := run(t, "--config", cfgPath, "engines", "set", "sf", "Hash", "99999")
	require.NoError(t, err)
	assert.Contains(t, out, "sf Hash = 2048")

	_, err = run(t, "--config", cfgPath, "engines", "set", "sf", "Style", "wild")
	assert.Error(t, err)

	_, err = run(t, "--config", cfgPath, "engines", "set", "sf", "Missing", "1")
	assert.Error(t, err)

	saved, err := config.ReadFile(enginesFile)
	require.NoError(t, err)
	stored, err := saved.Get("sf")
	require.NoError(t, err)
	hash, _ := stored.Options.Get("Hash")
	assert.Equal(t, "2048", hash.ValueString())
	style, _ := stored.Options.Get("Style")
	assert.Equal(t, "Solid", style.ValueString(), "failed edits are not saved")
}

func TestEnginesFlagOverridesSettings(t *testing.T) {
	cfgPath := initWorkspace(t)
	other := filepath.Join(t.TempDir(), "other.yaml")

	_, err := run(t, "--config", cfgPath, "--engines", other, "engines", "add", "lc0", "--bin", "/usr/bin/lc0")
	require.NoError(t, err)

	reg, err := config.ReadFile(other)
	require.NoError(t, err)
	assert.Equal(t, []string{"lc0"}, reg.Names())
}

func TestAnalyseRejectsIneligibleEngines(t *testing.T) {
	cfgPath := initWorkspace(t)

	_, err := run(t, "--config", cfgPath, "engines", "add", "crafty", "--bin", "/usr/games/crafty", "--proto", "winboard")
	require.NoError(t, err)

	out, err := run(t, "--config", cfgPath, "engines", "show", "crafty")
	require.NoError(t, err)
	assert.Contains(t, out, "Analysis: not supported")

	_, err = run(t, "--config", cfgPath, "analyse", "crafty", "--duration", "1s")
	assert.ErrorContains(t, err, "cannot be used for analysis")

	_, err = run(t, "--config", cfgPath, "analyse", "crafty", "--fen", "not a position")
	assert.ErrorContains(t, err, "invalid FEN")

	_, err = run(t, "--config", cfgPath, "engines", "add", "bad", "--bin", "/x", "--proto", "telnet")
	assert.Error(t, err)
}

func TestHistoryEmpty(t *testing.T) {
	cfgPath := initWorkspace(t)

	out, err := run(t, "--config", cfgPath, "history")
	require.NoError(t, err)
	assert.Contains(t, out, "No sessions recorded")

	_, err = run(t, "--config", cfgPath, "history", "missing-session")
	assert.Error(t, err)

	out, err = run(t, "--config", cfgPath, "--json", "history", "--events")
	require.NoError(t, err)
	assert.JSONEq(t, "[]", out)
}

func TestStatePrinterAfterReload(t *testing.T) {
	var out bytes.Buffer
	p := newStatePrinter(&out, false)

	apply := func(s *analysis.State, lines ...string) {
		for _, l := range lines {
			s.Apply(protocol.ParseInfo(l))
		}
	}

	var before analysis.State
	apply(&before, "info depth 1 pv e2e4", "info depth 2 pv e2e4 e7e5")
	require.True(t, p.print(before))
	assert.False(t, p.print(before), "unchanged state is not printed twice")

	// a reload resets the driver, so a later state can repeat the old count
	p.reset()
	var after analysis.State
	apply(&after, "info depth 7 pv d2d4", "info depth 8 pv d2d4 d7d5")
	require.Equal(t, before.Updates, after.Updates)
	assert.True(t, p.print(after))

	assert.Equal(t, 2, strings.Count(out.String(), "\n"))
	assert.Contains(t, out.String(), "depth 8")
}
