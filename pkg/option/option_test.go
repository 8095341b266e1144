package option

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseKind(t *testing.T) {
	tests := []struct {
		token string
		want  Kind
	}{
		{"spin", KindSpin},
		{"SPIN", KindSpin},
		{"string", KindString},
		{"check", KindCheck},
		{"combo", KindCombo},
		{"button", KindUnknown},
		{"", KindUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.token, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseKind(tt.token))
		})
	}
}

func TestSpinClampsValue(t *testing.T) {
	s := NewSpin(1, 1024, 16)
	assert.Equal(t, 16, s.Value)

	require.NoError(t, s.SetValue("4096"))
	assert.Equal(t, 1024, s.Value)

	require.NoError(t, s.SetValue("-3"))
	assert.Equal(t, 1, s.Value)

	assert.Error(t, s.SetValue("lots"))
	assert.Equal(t, 1, s.Value, "rejected value must not change state")
}

func TestSpinDefaultOutsideBounds(t *testing.T) {
	s := NewSpin(0, 10, 50)
	assert.Equal(t, 10, s.Value)
}

func TestComboRestrictsValue(t *testing.T) {
	c := NewCombo([]string{"Solid", "Normal", "Risky"}, "Normal")
	assert.Equal(t, "Normal", c.Value)

	require.NoError(t, c.SetValue("risky"))
	assert.Equal(t, "Risky", c.Value)

	assert.Error(t, c.SetValue("Reckless"))
	assert.Equal(t, "Risky", c.Value)
}

func TestComboResetFallsBackToFirstChoice(t *testing.T) {
	c := NewCombo([]string{"a", "b"}, "z")
	assert.Equal(t, "a", c.Value)
}

func TestCheckSetValue(t *testing.T) {
	c := NewCheck(false)
	require.NoError(t, c.SetValue("TRUE"))
	assert.True(t, c.Value)
	assert.Equal(t, "true", c.ValueString())
	assert.Error(t, c.SetValue("maybe"))
}

func TestMergePreservesValueWithNewBounds(t *testing.T) {
	prev := &Spin{Min: 1, Max: 1024, Default: 16, Value: 512}
	fresh := NewSpin(1, 2048, 16)

	merged, ok := Merge(prev, fresh).(*Spin)
	require.True(t, ok)
	assert.Equal(t, 512, merged.Value)
	assert.Equal(t, 2048, merged.Max)
	assert.Equal(t, 16, merged.Default)
	assert.Equal(t, 16, fresh.Value, "fresh option must not be mutated")
}

func TestMergeClampsIntoShrunkBounds(t *testing.T) {
	prev := &Spin{Min: 1, Max: 4096, Default: 16, Value: 4000}
	merged := Merge(prev, NewSpin(1, 1024, 16)).(*Spin)
	assert.Equal(t, 1024, merged.Value)
}

func TestMergeAcrossKinds(t *testing.T) {
	tests := []struct {
		name  string
		prev  Option
		fresh Option
		want  string
	}{
		{"no previous uses default", nil, NewString("book.bin"), "book.bin"},
		{"string carried", &String{Default: "", Value: "/tb"}, NewString("<empty>"), "/tb"},
		{"combo carried", &Combo{Vars: []string{"a", "b"}, Value: "b"}, NewCombo([]string{"a", "b", "c"}, "a"), "b"},
		{"combo choice vanished", &Combo{Vars: []string{"x"}, Value: "x"}, NewCombo([]string{"a", "b"}, "a"), "a"},
		{"string to spin parses", &String{Value: "64"}, NewSpin(1, 128, 16), "64"},
		{"string to spin unparsable", &String{Value: "big"}, NewSpin(1, 128, 16), "16"},
		{"check carried", &Check{Default: false, Value: true}, NewCheck(false), "true"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Merge(tt.prev, tt.fresh).ValueString())
		})
	}
}

func TestSetOrderAndMerge(t *testing.T) {
	prev := NewSet()
	prev.Put("Hash", &Spin{Min: 1, Max: 1024, Default: 16, Value: 512})
	prev.Put("Stale", NewCheck(true))

	fresh := NewSet()
	fresh.Put("Threads", NewSpin(1, 512, 1))
	fresh.Put("Hash", NewSpin(1, 2048, 16))

	merged := fresh.MergeFrom(prev)
	assert.Equal(t, []string{"Threads", "Hash"}, merged.Names())

	hash, ok := merged.Get("Hash")
	require.True(t, ok)
	assert.Equal(t, "512", hash.ValueString())

	_, ok = merged.Get("Stale")
	assert.False(t, ok, "options missing from discovery must disappear")
}

func TestSetPatch(t *testing.T) {
	stored := NewSet()
	stored.Put("Stale", NewCheck(true))
	stored.Put("Hash", &Spin{Min: 1, Max: 1024, Default: 16, Value: 512})

	partial := NewSet()
	partial.Put("Hash", NewSpin(1, 2048, 16))
	partial.Put("Threads", NewSpin(1, 64, 1))

	patched := stored.Patch(partial)
	assert.Equal(t, []string{"Stale", "Hash", "Threads"}, patched.Names())

	hash, _ := patched.Get("Hash")
	assert.Equal(t, &Spin{Min: 1, Max: 2048, Default: 16, Value: 512}, hash)

	stale, ok := patched.Get("Stale")
	require.True(t, ok)
	assert.Equal(t, "true", stale.ValueString())

	assert.Equal(t, []string{"Stale", "Hash"}, stored.Names(), "receiver is left untouched")
	hash, _ = stored.Get("Hash")
	assert.Equal(t, 1024, hash.(*Spin).Max)
}

func TestSetPutReplaceKeepsPosition(t *testing.T) {
	s := NewSet()
	s.Put("a", NewCheck(false))
	s.Put("b", NewCheck(false))
	s.Put("a", NewCheck(true))
	assert.Equal(t, []string{"a", "b"}, s.Names())

	assert.True(t, s.Delete("a"))
	assert.False(t, s.Delete("a"))
	assert.Equal(t, []string{"b"}, s.Names())
}
