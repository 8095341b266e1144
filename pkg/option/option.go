// Package option models the typed, bounded parameters a chess engine
// exposes for configuration.
//
// Options form a closed set of kinds (spin, string, check, combo) plus an
// Unknown kind for type tokens the host does not understand. Consumers are
// expected to switch over the concrete types exhaustively.
package option

import (
	"fmt"
	"strconv"
	"strings"
)

// Kind identifies the variant of an Option.
type Kind string

const (
	// KindSpin is an integer bounded by a minimum and maximum.
	KindSpin Kind = "spin"
	// KindString is free text.
	KindString Kind = "string"
	// KindCheck is a boolean toggle.
	KindCheck Kind = "check"
	// KindCombo is one of a fixed list of choices.
	KindCombo Kind = "combo"
	// KindUnknown holds any type token not listed above (e.g. "button").
	KindUnknown Kind = "unknown"
)

// ParseKind maps a protocol type token to a Kind. Unrecognised tokens map to KindUnknown.
func ParseKind(token string) Kind {
	switch Kind(strings.ToLower(strings.TrimSpace(token))) {
	case KindSpin:
		return KindSpin
	case KindString:
		return KindString
	case KindCheck:
		return KindCheck
	case KindCombo:
		return KindCombo
	default:
		return KindUnknown
	}
}

// Option is a single engine-configurable parameter.
// The value of an Option always lies inside its declared domain.
type Option interface {
	// Kind returns the variant tag.
	Kind() Kind
	// ValueString renders the current value the way it is sent to the engine.
	ValueString() string
	// DefaultString renders the default value.
	DefaultString() string
	// SetValue parses s and stores it, keeping the value inside the domain.
	SetValue(s string) error
	// Reset sets the value back to the default.
	Reset()
	// Clone returns a deep copy.
	Clone() Option

	sealed()
}

// Spin is an integer option. Value is clamped to [Min, Max].
type Spin struct {
	Min     int
	Max     int
	Default int
	Value   int
}

// NewSpin returns a spin option whose value starts at the (clamped) default.
func NewSpin(min, max, def int) *Spin {
	s := &Spin{Min: min, Max: max, Default: def}
	s.Reset()
	return s
}

func (s *Spin) Kind() Kind            { return KindSpin }
func (s *Spin) ValueString() string   { return strconv.Itoa(s.Value) }
func (s *Spin) DefaultString() string { return strconv.Itoa(s.Default) }
func (s *Spin) Reset()                { s.Value = s.clamp(s.Default) }
func (s *Spin) sealed()               {}

// SetValue parses an integer and clamps it into range.
func (s *Spin) SetValue(v string) error {
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return fmt.Errorf("spin value %q is not an integer: %w", v, err)
	}
	s.Value = s.clamp(n)
	return nil
}

// Clamp clamps the current value into the declared bounds.
func (s *Spin) Clamp() { s.Value = s.clamp(s.Value) }

func (s *Spin) clamp(n int) int {
	// engines occasionally report min > max; treat the bounds as unordered
	lo, hi := s.Min, s.Max
	if lo > hi {
		lo, hi = hi, lo
	}
	if n < lo {
		return lo
	}
	if n > hi {
		return hi
	}
	return n
}

func (s *Spin) Clone() Option {
	c := *s
	return &c
}

// String is a free-text option.
type String struct {
	Default string
	Value   string
}

// NewString returns a string option initialised to its default.
func NewString(def string) *String {
	return &String{Default: def, Value: def}
}

func (s *String) Kind() Kind            { return KindString }
func (s *String) ValueString() string   { return s.Value }
func (s *String) DefaultString() string { return s.Default }
func (s *String) Reset()                { s.Value = s.Default }
func (s *String) sealed()               {}

func (s *String) SetValue(v string) error {
	s.Value = v
	return nil
}

func (s *String) Clone() Option {
	c := *s
	return &c
}

// Check is a boolean option.
type Check struct {
	Default bool
	Value   bool
}

// NewCheck returns a check option initialised to its default.
func NewCheck(def bool) *Check {
	return &Check{Default: def, Value: def}
}

func (c *Check) Kind() Kind            { return KindCheck }
func (c *Check) ValueString() string   { return strconv.FormatBool(c.Value) }
func (c *Check) DefaultString() string { return strconv.FormatBool(c.Default) }
func (c *Check) Reset()                { c.Value = c.Default }
func (c *Check) sealed()               {}

func (c *Check) SetValue(v string) error {
	b, err := ParseBool(v)
	if err != nil {
		return err
	}
	c.Value = b
	return nil
}

func (c *Check) Clone() Option {
	cp := *c
	return &cp
}

// Combo is an option restricted to one of Vars.
type Combo struct {
	Vars    []string
	Default string
	Value   string
}

// NewCombo returns a combo option initialised to its default.
func NewCombo(vars []string, def string) *Combo {
	c := &Combo{Vars: append([]string(nil), vars...), Default: def}
	c.Reset()
	return c
}

func (c *Combo) Kind() Kind            { return KindCombo }
func (c *Combo) ValueString() string   { return c.Value }
func (c *Combo) DefaultString() string { return c.Default }
func (c *Combo) sealed()               {}

// Reset selects the default, or the first choice when the default is not one of Vars.
func (c *Combo) Reset() {
	if v, ok := c.lookup(c.Default); ok {
		c.Value = v
		return
	}
	if len(c.Vars) > 0 {
		c.Value = c.Vars[0]
		return
	}
	c.Value = c.Default
}

// SetValue accepts only one of Vars (case-insensitive, stored in canonical spelling).
func (c *Combo) SetValue(v string) error {
	canonical, ok := c.lookup(v)
	if !ok {
		return fmt.Errorf("combo value %q is not one of %v", v, c.Vars)
	}
	c.Value = canonical
	return nil
}

func (c *Combo) lookup(v string) (string, bool) {
	v = strings.TrimSpace(v)
	for _, choice := range c.Vars {
		if strings.EqualFold(choice, v) {
			return choice, true
		}
	}
	return "", false
}

func (c *Combo) Clone() Option {
	cp := *c
	cp.Vars = append([]string(nil), c.Vars...)
	return &cp
}

// Unknown keeps an option of an unrecognised type so it can be inspected.
// Unknown options are never sent to an engine.
type Unknown struct {
	Type    string
	Default string
	Value   string
}

func (u *Unknown) Kind() Kind            { return KindUnknown }
func (u *Unknown) ValueString() string   { return u.Value }
func (u *Unknown) DefaultString() string { return u.Default }
func (u *Unknown) Reset()                { u.Value = u.Default }
func (u *Unknown) sealed()               {}

func (u *Unknown) SetValue(v string) error {
	u.Value = v
	return nil
}

func (u *Unknown) Clone() Option {
	c := *u
	return &c
}

// ParseBool accepts the spellings engines and config files use for check values.
func ParseBool(v string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "true", "1", "on", "yes":
		return true, nil
	case "false", "0", "off", "no", "":
		return false, nil
	}
	return false, fmt.Errorf("check value %q is not a boolean", v)
}

// Merge combines a previously stored option with a freshly discovered one.
// Type, bounds and default come from fresh. The value of prev is carried over
// when it can be represented in the fresh domain; otherwise the fresh default wins.
func Merge(prev, fresh Option) Option {
	merged := fresh.Clone()
	merged.Reset()
	if prev == nil {
		return merged
	}

	switch m := merged.(type) {
	case *Spin:
		if p, ok := prev.(*Spin); ok {
			m.Value = p.Value
			m.Clamp()
			return m
		}
	case *Check:
		if p, ok := prev.(*Check); ok {
			m.Value = p.Value
			return m
		}
	}

	if err := merged.SetValue(prev.ValueString()); err != nil {
		merged.Reset()
	}
	return merged
}
