package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kibitz/kibitz/pkg/config"
)

func newTestManager(t *testing.T, mode string) (*Manager, string) {
	t.Helper()

	cfg, logPath := fakeConfig(t, mode)
	reg := config.NewRegistry()
	require.NoError(t, reg.Add(cfg))

	m := NewManager(reg, WithSettleDelay(time.Millisecond))
	t.Cleanup(m.ExitAll)
	return m, logPath
}

func TestManagerCreatesEnginesLazily(t *testing.T) {
	m, _ := newTestManager(t, modeUCI)

	a, err := m.Engine("fake")
	require.NoError(t, err)
	b, err := m.Engine("fake")
	require.NoError(t, err)
	assert.Same(t, a, b)
	assert.Equal(t, StateStopped, a.State())

	_, err = m.Engine("missing")
	assert.True(t, errors.Is(err, config.ErrNotFound))
}

func TestManagerStartSendsOptions(t *testing.T) {
	m, logPath := newTestManager(t, modeUCI)

	require.NoError(t, m.Start(context.Background(), "fake"))
	waitForCommands(t, logPath, "uci", "setoption name Hash value 16")

	require.NoError(t, m.Search("fake", startFEN, ""))
	require.NoError(t, m.Stop("fake"))
	assert.True(t, errors.Is(m.Stop("fake"), ErrNotSearching))

	require.NoError(t, m.Exit("fake"))
	e, _ := m.Engine("fake")
	assert.Equal(t, StateStopped, e.State())
}

func TestManagerRenameKeepsEngine(t *testing.T) {
	m, _ := newTestManager(t, modeUCI)
	require.NoError(t, m.Start(context.Background(), "fake"))
	before, _ := m.Engine("fake")

	require.NoError(t, m.Rename("fake", "faker"))

	after, err := m.Engine("faker")
	require.NoError(t, err)
	assert.Same(t, before, after)
	assert.Equal(t, "faker", after.Name())
	assert.Equal(t, StateIdle, after.State())

	_, err = m.Engine("fake")
	assert.True(t, errors.Is(err, config.ErrNotFound))
}

func TestManagerRemoveExitsEngine(t *testing.T) {
	m, _ := newTestManager(t, modeUCI)
	require.NoError(t, m.Start(context.Background(), "fake"))
	e, _ := m.Engine("fake")

	require.NoError(t, m.Remove("fake"))
	assert.Equal(t, StateStopped, e.State())
	assert.Zero(t, m.Registry().Len())

	assert.True(t, errors.Is(m.Remove("fake"), config.ErrNotFound))
}

func TestManagerStartFailure(t *testing.T) {
	reg := config.NewRegistry()
	require.NoError(t, reg.Add(config.NewEngineConfig("ghost", "/does/not/exist", 0)))

	var msgs []string
	m := NewManager(reg, WithStatusSink(StatusFunc(func(msg string) { msgs = append(msgs, msg) })))

	err := m.Start(context.Background(), "ghost")
	assert.True(t, IsSpawn(err))
	assert.Len(t, msgs, 1)
}

func TestQueueDropsOldest(t *testing.T) {
	p := &process{name: "q", queue: make(chan string, 2)}

	p.push("a")
	p.push("b")
	p.push("c")

	assert.Equal(t, "b", <-p.queue)
	assert.Equal(t, "c", <-p.queue)
}
