package config

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/kibitz/kibitz/pkg/option"
	"github.com/kibitz/kibitz/pkg/protocol"
)

const (
	xmlRoot = "engines"
	xmlKey  = "key"
	xmlItem = "item"
)

// xmlNode is a generic element. Element names are data in this format, so
// the tree is walked by hand instead of mapped onto structs.
type xmlNode struct {
	XMLName xml.Name
	Attrs   []xml.Attr `xml:",any,attr"`
	Text    string     `xml:",chardata"`
	Nodes   []xmlNode  `xml:",any"`
}

// key returns the logical name of the element: the name attribute of a
// <key> element, or the element name itself.
func (n xmlNode) key() string {
	if n.XMLName.Local == xmlKey {
		for _, a := range n.Attrs {
			if a.Name.Local == "name" {
				return a.Value
			}
		}
	}
	return n.XMLName.Local
}

func (n xmlNode) child(name string) (xmlNode, bool) {
	for _, c := range n.Nodes {
		if c.key() == name {
			return c, true
		}
	}
	return xmlNode{}, false
}

// text returns the character data of a leaf element verbatim. Elements with
// children only carry indentation, which is dropped.
func (n xmlNode) text() string {
	if len(n.Nodes) > 0 {
		return ""
	}
	return n.Text
}

// token returns the text of an element holding a keyword or a number.
func (n xmlNode) token() string {
	return strings.TrimSpace(n.text())
}

func (n xmlNode) textPtr(name string) *string {
	c, ok := n.child(name)
	if !ok {
		return nil
	}
	s := c.text()
	return &s
}

func (n xmlNode) items() []string {
	out := make([]string, 0, len(n.Nodes))
	for _, c := range n.Nodes {
		out = append(out, c.text())
	}
	return out
}

// newElement names an element after key, falling back to <key name="...">
// when key is not a usable element name.
func newElement(key string) xmlNode {
	if key != xmlKey && validXMLName(key) {
		return xmlNode{XMLName: xml.Name{Local: key}}
	}
	return xmlNode{
		XMLName: xml.Name{Local: xmlKey},
		Attrs:   []xml.Attr{{Name: xml.Name{Local: "name"}, Value: key}},
	}
}

func textElement(name, text string) xmlNode {
	n := newElement(name)
	n.Text = text
	return n
}

func listElement(name string, values []string) xmlNode {
	n := newElement(name)
	for _, v := range values {
		n.Nodes = append(n.Nodes, textElement(xmlItem, v))
	}
	return n
}

func validXMLName(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r == '_' || unicode.IsLetter(r):
		case i > 0 && (r == '-' || r == '.' || unicode.IsDigit(r)):
		default:
			return false
		}
	}
	// names starting with "xml" are reserved
	return !strings.HasPrefix(strings.ToLower(s), "xml")
}

type xmlCodec struct{}

func (xmlCodec) decode(data []byte) (*Registry, error) {
	var root xmlNode
	if err := xml.Unmarshal(data, &root); err != nil {
		return nil, err
	}

	reg := NewRegistry()
	for _, n := range root.Nodes {
		cfg, err := decodeXMLEngine(n)
		if err != nil {
			return nil, err
		}
		if err := reg.Add(cfg); err != nil {
			return nil, err
		}
	}
	return reg, nil
}

func decodeXMLEngine(n xmlNode) (*EngineConfig, error) {
	cfg := &EngineConfig{Name: n.key()}

	if bin, ok := n.child("bin"); ok {
		cfg.Binary = bin.text()
	}
	if args, ok := n.child("args"); ok {
		cfg.Args = args.items()
	}
	if proto, ok := n.child("proto"); ok && proto.token() != "" {
		p, err := protocol.ParseProtocol(proto.token())
		if err != nil {
			return nil, fmt.Errorf("engine %q: %w", cfg.Name, err)
		}
		cfg.Protocol = p
	}

	cfg.Options = option.NewSet()
	if opts, ok := n.child("options"); ok {
		for _, o := range opts.Nodes {
			f, err := decodeXMLOption(o)
			if err != nil {
				return nil, fmt.Errorf("engine %q option %q: %w", cfg.Name, o.key(), err)
			}
			cfg.Options.Put(o.key(), f.build())
		}
	}

	cfg.Normalize()
	return cfg, nil
}

func decodeXMLOption(n xmlNode) (optionFields, error) {
	f := optionFields{
		Default: n.textPtr("default"),
		Value:   n.textPtr("value"),
	}
	if t, ok := n.child("type"); ok {
		f.Type = t.token()
	}
	for _, bound := range []struct {
		name string
		dst  **int
	}{{"min", &f.Min}, {"max", &f.Max}} {
		c, ok := n.child(bound.name)
		if !ok {
			continue
		}
		v, err := strconv.Atoi(c.token())
		if err != nil {
			return f, fmt.Errorf("invalid %s: %w", bound.name, err)
		}
		*bound.dst = &v
	}
	if vals, ok := n.child("vals"); ok {
		f.Vars = vals.items()
	}
	return f, nil
}

func (xmlCodec) encode(reg *Registry) ([]byte, error) {
	root := xmlNode{XMLName: xml.Name{Local: xmlRoot}}

	reg.Each(func(cfg *EngineConfig) bool {
		e := newElement(cfg.Name)
		e.Nodes = append(e.Nodes,
			textElement("bin", cfg.Binary),
			textElement("proto", strconv.Itoa(int(cfg.Protocol))),
		)
		if len(cfg.Args) > 0 {
			e.Nodes = append(e.Nodes, listElement("args", cfg.Args))
		}

		opts := newElement("options")
		cfg.Options.Each(func(name string, opt option.Option) bool {
			opts.Nodes = append(opts.Nodes, encodeXMLOption(name, fieldsOf(opt)))
			return true
		})
		e.Nodes = append(e.Nodes, opts)

		root.Nodes = append(root.Nodes, e)
		return true
	})

	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	enc := xml.NewEncoder(&buf)
	enc.Indent("", "  ")
	if err := enc.Encode(root); err != nil {
		return nil, err
	}
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}

func encodeXMLOption(name string, f optionFields) xmlNode {
	n := newElement(name)
	n.Nodes = append(n.Nodes, textElement("type", f.Type))
	if f.Min != nil {
		n.Nodes = append(n.Nodes, textElement("min", strconv.Itoa(*f.Min)))
	}
	if f.Max != nil {
		n.Nodes = append(n.Nodes, textElement("max", strconv.Itoa(*f.Max)))
	}
	if f.Default != nil {
		n.Nodes = append(n.Nodes, textElement("default", *f.Default))
	}
	if f.Value != nil {
		n.Nodes = append(n.Nodes, textElement("value", *f.Value))
	}
	if f.Vars != nil {
		n.Nodes = append(n.Nodes, listElement("vals", f.Vars))
	}
	return n
}
