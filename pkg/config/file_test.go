package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kibitz/kibitz/pkg/option"
	"github.com/kibitz/kibitz/pkg/protocol"
)

func sampleRegistry(t *testing.T) *Registry {
	t.Helper()

	reg := NewRegistry()

	sf := NewEngineConfig("Stockfish", "/usr/bin/stockfish", protocol.UCI)
	sf.Options.Put("Hash", &option.Spin{Min: 1, Max: 1024, Default: 16, Value: 512})
	sf.Options.Put("Ponder", &option.Check{Default: false, Value: true})
	sf.Options.Put("SyzygyPath", &option.String{Default: "", Value: "/tb/syzygy"})
	sf.Options.Put("Skill Level", &option.Spin{Min: 0, Max: 20, Default: 20, Value: 5})
	sf.Options.Put("Style", &option.Combo{Vars: []string{"Solid", "Normal", "Risky"}, Default: "Normal", Value: "Risky"})
	sf.Options.Put("Clear Hash", &option.Unknown{Type: "button"})
	require.NoError(t, reg.Add(sf))

	lc0 := NewEngineConfig("Lc0 v0.30", "/opt/lc0/lc0", protocol.UCI)
	lc0.Args = []string{"--weights=/opt/lc0/net.pb.gz", "--backend=cuda"}
	require.NoError(t, reg.Add(lc0))

	require.NoError(t, reg.Add(NewEngineConfig("crafty", "/usr/games/crafty", protocol.WinBoard)))
	return reg
}

func assertSameRegistry(t *testing.T, want, got *Registry) {
	t.Helper()

	require.Equal(t, want.Names(), got.Names())
	want.Each(func(w *EngineConfig) bool {
		g, err := got.Get(w.Name)
		require.NoError(t, err)
		assert.Equal(t, w.Binary, g.Binary, w.Name)
		assert.Equal(t, len(w.Args), len(g.Args), w.Name)
		for i := range w.Args {
			assert.Equal(t, w.Args[i], g.Args[i])
		}
		assert.Equal(t, w.Protocol, g.Protocol, w.Name)
		assert.Equal(t, w.Options.Names(), g.Options.Names(), w.Name)
		w.Options.Each(func(name string, wo option.Option) bool {
			goOpt, ok := g.Options.Get(name)
			require.True(t, ok, name)
			assert.Equal(t, wo, goOpt, "%s/%s", w.Name, name)
			return true
		})
		return true
	})
}

func TestRoundTrip(t *testing.T) {
	for _, ext := range []string{".xml", ".yaml", ".yml", ".toml"} {
		t.Run(ext, func(t *testing.T) {
			want := sampleRegistry(t)
			path := filepath.Join(t.TempDir(), "engines"+ext)

			require.NoError(t, WriteFile(path, want))
			got, err := ReadFile(path)
			require.NoError(t, err)

			assertSameRegistry(t, want, got)
		})
	}
}

func TestRoundTripKeepsWhitespace(t *testing.T) {
	for _, ext := range []string{".xml", ".yaml", ".toml"} {
		t.Run(ext, func(t *testing.T) {
			want := NewRegistry()
			cfg := NewEngineConfig("Padded", " /opt/sf/stockfish ", protocol.UCI)
			cfg.Args = []string{" -x", "tab\there", "two\nlines"}
			cfg.Options.Put("Book File", &option.String{Default: " book.bin", Value: "  padded  "})
			require.NoError(t, want.Add(cfg))

			path := filepath.Join(t.TempDir(), "engines"+ext)
			require.NoError(t, WriteFile(path, want))
			got, err := ReadFile(path)
			require.NoError(t, err)

			assertSameRegistry(t, want, got)
		})
	}
}

func TestWriteFileOverwrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "engines.xml")

	require.NoError(t, WriteFile(path, sampleRegistry(t)))

	reg := NewRegistry()
	require.NoError(t, reg.Add(NewEngineConfig("only", "/bin/only", protocol.UCI)))
	require.NoError(t, WriteFile(path, reg))

	got, err := ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"only"}, got.Names())

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary files must not be left behind")
}

func TestXMLLayout(t *testing.T) {
	path := filepath.Join(t.TempDir(), "engines.xml")
	require.NoError(t, WriteFile(path, sampleRegistry(t)))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	doc := string(data)

	assert.Contains(t, doc, "<engines>")
	assert.Contains(t, doc, "<Stockfish>")
	assert.Contains(t, doc, "<bin>/usr/bin/stockfish</bin>")
	assert.Contains(t, doc, "<proto>1</proto>")
	assert.Contains(t, doc, "<proto>2</proto>")
	assert.Contains(t, doc, `<key name="Lc0 v0.30">`)
	assert.Contains(t, doc, `<key name="Skill Level">`)
	assert.Contains(t, doc, "<item>--backend=cuda</item>")
	assert.Contains(t, doc, "<item>Risky</item>")
	assert.Contains(t, doc, "<min>1</min>")
	assert.Contains(t, doc, "<max>1024</max>")
	assert.Contains(t, doc, "<value>512</value>")
}

func TestReadXMLPartialEntries(t *testing.T) {
	path := filepath.Join(t.TempDir(), "engines.xml")
	doc := `<?xml version="1.0" ?>
<root>
	<Bare/>
	<Stockfish>
		<bin>/usr/bin/stockfish</bin>
		<options>
			<Hash>
				<type>spin</type>
				<min>1</min>
				<max>2048</max>
				<default>16</default>
				<value>4096</value>
			</Hash>
			<Threads>
				<type>spin</type>
				<default>1</default>
				<min>1</min>
				<max>8</max>
			</Threads>
			<Style>
				<type>combo</type>
				<value>bogus</value>
				<vals><item>Solid</item><item>Risky</item></vals>
			</Style>
			<OwnBook>
				<type>check</type>
				<value>yes</value>
			</OwnBook>
		</options>
	</Stockfish>
</root>`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

	reg, err := ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, []string{"Bare", "Stockfish"}, reg.Names())

	bare, err := reg.Get("Bare")
	require.NoError(t, err)
	assert.Equal(t, "", bare.Binary)
	assert.Equal(t, protocol.UCI, bare.Protocol)
	assert.Equal(t, 0, bare.Options.Len())

	sf, err := reg.Get("Stockfish")
	require.NoError(t, err)
	assert.Equal(t, protocol.UCI, sf.Protocol)

	hash, _ := sf.Options.Get("Hash")
	assert.Equal(t, &option.Spin{Min: 1, Max: 2048, Default: 16, Value: 2048}, hash, "stored value is clamped")

	threads, _ := sf.Options.Get("Threads")
	assert.Equal(t, &option.Spin{Min: 1, Max: 8, Default: 1, Value: 1}, threads, "missing value takes the default")

	style, _ := sf.Options.Get("Style")
	assert.Equal(t, "Solid", style.ValueString(), "unknown choice falls back to the first var")

	own, _ := sf.Options.Get("OwnBook")
	assert.Equal(t, "true", own.ValueString())
}

func TestReadFileMissing(t *testing.T) {
	_, err := ReadFile(filepath.Join(t.TempDir(), "absent.xml"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNoConfig))
	assert.True(t, errors.Is(err, fs.ErrNotExist))

	var perr *ParseError
	assert.False(t, errors.As(err, &perr))

	reg, err := ReadFileOrEmpty(filepath.Join(t.TempDir(), "absent.xml"))
	require.NoError(t, err)
	assert.Equal(t, 0, reg.Len())
}

func TestReadFileParseErrors(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
	}{
		{name: "truncated xml", file: "e.xml", content: "<engines><Stockfish><bin>"},
		{name: "bad proto", file: "e.xml", content: "<engines><sf><proto>uci2</proto></sf></engines>"},
		{name: "bad bound", file: "e.xml", content: "<engines><sf><options><Hash><type>spin</type><min>x</min></Hash></options></sf></engines>"},
		{name: "duplicate", file: "e.xml", content: "<engines><sf/><sf/></engines>"},
		{name: "bad yaml", file: "e.yaml", content: "engines: [name: {"},
		{name: "bad yaml proto", file: "e.yaml", content: "engines:\n  - name: sf\n    proto: 9\n"},
		{name: "bad toml", file: "e.toml", content: "[[engines]\nname ="},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), tt.file)
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0o644))

			_, err := ReadFile(path)
			require.Error(t, err)

			var perr *ParseError
			require.True(t, errors.As(err, &perr), "got %v", err)
			assert.Equal(t, path, perr.Path)
			assert.False(t, errors.Is(err, ErrNoConfig))
		})
	}
}

func TestReadYAMLDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "engines.yaml")
	content := strings.Join([]string{
		"engines:",
		"  - name: Stockfish",
		"    bin: /usr/bin/stockfish",
		"    options:",
		"      - name: Hash",
		"        type: spin",
		"        min: 1",
		"        max: 1024",
		"        default: \"16\"",
		"  - name: Crafty",
		"    proto: 2",
	}, "\n")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	reg, err := ReadFile(path)
	require.NoError(t, err)

	sf, err := reg.Get("Stockfish")
	require.NoError(t, err)
	assert.Equal(t, protocol.UCI, sf.Protocol)
	hash, _ := sf.Options.Get("Hash")
	assert.Equal(t, "16", hash.ValueString())

	crafty, err := reg.Get("Crafty")
	require.NoError(t, err)
	assert.Equal(t, protocol.WinBoard, crafty.Protocol)
	assert.Equal(t, "", crafty.Binary)
}

func TestValidXMLName(t *testing.T) {
	tests := map[string]bool{
		"Stockfish":   true,
		"_private":    true,
		"lc0-v0.30":   true,
		"Skill Level": false,
		"3check":      false,
		"":            false,
		"xmlEngine":   false,
		"a/b":         false,
	}
	for name, want := range tests {
		assert.Equal(t, want, validXMLName(name), name)
	}
}
