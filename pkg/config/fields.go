package config

import (
	"strconv"
	"strings"

	"github.com/kibitz/kibitz/pkg/option"
)

// optionFields is the persisted subset of an option. Which fields are set
// depends on the kind; absent fields are nil.
type optionFields struct {
	Type    string
	Min     *int
	Max     *int
	Default *string
	Value   *string
	Vars    []string
}

func fieldsOf(opt option.Option) optionFields {
	def, val := opt.DefaultString(), opt.ValueString()
	f := optionFields{
		Type:    string(opt.Kind()),
		Default: &def,
		Value:   &val,
	}
	switch o := opt.(type) {
	case *option.Spin:
		f.Min, f.Max = intPtr(o.Min), intPtr(o.Max)
	case *option.Combo:
		f.Vars = append([]string(nil), o.Vars...)
	case *option.Unknown:
		f.Type = o.Type
	}
	return f
}

// build turns persisted fields back into an option whose value is inside its domain.
func (f optionFields) build() option.Option {
	def := deref(f.Default)

	var opt option.Option
	switch option.ParseKind(f.Type) {
	case option.KindSpin:
		n, _ := strconv.Atoi(strings.TrimSpace(def))
		opt = option.NewSpin(derefInt(f.Min), derefInt(f.Max), n)
	case option.KindString:
		opt = option.NewString(def)
	case option.KindCheck:
		b, _ := option.ParseBool(def)
		opt = option.NewCheck(b)
	case option.KindCombo:
		opt = option.NewCombo(f.Vars, def)
	default:
		opt = &option.Unknown{Type: f.Type, Default: def, Value: def}
	}

	if f.Value != nil {
		// an unrepresentable stored value falls back to the default
		if err := opt.SetValue(*f.Value); err != nil {
			opt.Reset()
		}
	}
	return opt
}

func intPtr(n int) *int { return &n }

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func derefInt(n *int) int {
	if n == nil {
		return 0
	}
	return *n
}
