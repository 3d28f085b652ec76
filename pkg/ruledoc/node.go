// Package ruledoc models the documents exchanged with the rules and gameplay
// services. Payload shapes are not fixed by the client, so every payload is held
// as a Node: a closed, recursively defined variant of scalars, sequences and
// mappings. Mappings keep the key order of the document they were read from.
package ruledoc

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Kind identifies which variant a Node holds.
type Kind int

const (
	KindScalar Kind = iota
	KindSequence
	KindMapping
)

func (k Kind) String() string {
	switch k {
	case KindScalar:
		return "scalar"
	case KindSequence:
		return "sequence"
	case KindMapping:
		return "mapping"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// ScalarType records the JSON type of a scalar so it can be written back unchanged.
type ScalarType int

const (
	ScalarString ScalarType = iota
	ScalarNumber
	ScalarBool
	ScalarNull
)

// Node is one value in a document tree.
type Node struct {
	Kind   Kind
	Type   ScalarType // scalars only
	Value  string     // scalar text; numbers keep their literal form
	Items  []*Node    // sequences only
	Fields []Field    // mappings only, in document order
}

// Field is one key/value pair of a mapping.
type Field struct {
	Key   string
	Value *Node
}

func String(s string) *Node { return &Node{Kind: KindScalar, Type: ScalarString, Value: s} }
func Number(n string) *Node { return &Node{Kind: KindScalar, Type: ScalarNumber, Value: n} }
func Null() *Node           { return &Node{Kind: KindScalar, Type: ScalarNull, Value: "null"} }

func Int(n int) *Node { return Number(strconv.Itoa(n)) }

func Bool(b bool) *Node {
	return &Node{Kind: KindScalar, Type: ScalarBool, Value: strconv.FormatBool(b)}
}

func Seq(items ...*Node) *Node { return &Node{Kind: KindSequence, Items: items} }

func Map(fields ...Field) *Node { return &Node{Kind: KindMapping, Fields: fields} }

// F is shorthand for building mapping fields.
func F(key string, value *Node) Field { return Field{Key: key, Value: value} }

func (n *Node) IsScalar() bool   { return n != nil && n.Kind == KindScalar }
func (n *Node) IsSequence() bool { return n != nil && n.Kind == KindSequence }
func (n *Node) IsMapping() bool  { return n != nil && n.Kind == KindMapping }
func (n *Node) IsNull() bool     { return n == nil || (n.Kind == KindScalar && n.Type == ScalarNull) }

// Get returns the value stored under key, or nil when n is not a mapping or the
// key is absent.
func (n *Node) Get(key string) *Node {
	if !n.IsMapping() {
		return nil
	}
	for _, f := range n.Fields {
		if f.Key == key {
			return f.Value
		}
	}
	return nil
}

// Set replaces the value under key in place, or appends a new field.
func (n *Node) Set(key string, value *Node) {
	for i := range n.Fields {
		if n.Fields[i].Key == key {
			n.Fields[i].Value = value
			return
		}
	}
	n.Fields = append(n.Fields, Field{Key: key, Value: value})
}

// Text returns the display form of a scalar. Containers render as compact JSON.
func (n *Node) Text() string {
	if n == nil {
		return ""
	}
	if n.Kind == KindScalar {
		return n.Value
	}
	b, err := n.MarshalJSON()
	if err != nil {
		return ""
	}
	return string(b)
}

// AsInt reads a numeric scalar (or a numeric string) as an int.
func (n *Node) AsInt() (int, bool) {
	if !n.IsScalar() || n.Type == ScalarNull || n.Type == ScalarBool {
		return 0, false
	}
	s := strings.TrimSpace(n.Value)
	if i, err := strconv.Atoi(s); err == nil {
		return i, true
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f != float64(int(f)) {
		return 0, false
	}
	return int(f), true
}

// Clone returns a deep copy.
func (n *Node) Clone() *Node {
	if n == nil {
		return nil
	}
	c := &Node{Kind: n.Kind, Type: n.Type, Value: n.Value}
	if n.Items != nil {
		c.Items = make([]*Node, len(n.Items))
		for i, it := range n.Items {
			c.Items[i] = it.Clone()
		}
	}
	if n.Fields != nil {
		c.Fields = make([]Field, len(n.Fields))
		for i, f := range n.Fields {
			c.Fields[i] = Field{Key: f.Key, Value: f.Value.Clone()}
		}
	}
	return c
}

// Equal reports whether two trees hold the same values in the same order.
func (n *Node) Equal(o *Node) bool {
	if n == nil || o == nil {
		return n == o
	}
	if n.Kind != o.Kind {
		return false
	}
	switch n.Kind {
	case KindScalar:
		return n.Type == o.Type && n.Value == o.Value
	case KindSequence:
		if len(n.Items) != len(o.Items) {
			return false
		}
		for i := range n.Items {
			if !n.Items[i].Equal(o.Items[i]) {
				return false
			}
		}
		return true
	default:
		if len(n.Fields) != len(o.Fields) {
			return false
		}
		for i := range n.Fields {
			if n.Fields[i].Key != o.Fields[i].Key || !n.Fields[i].Value.Equal(o.Fields[i].Value) {
				return false
			}
		}
		return true
	}
}

// ParseJSON decodes a JSON document while keeping object key order.
// A key repeated within one object keeps its first position and its last value.
func ParseJSON(data []byte) (*Node, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	n, err := decodeValue(dec)
	if err != nil {
		return nil, fmt.Errorf("failed to parse document: %w", err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, errors.New("failed to parse document: trailing data after top-level value")
	}
	return n, nil
}

func decodeValue(dec *json.Decoder) (*Node, error) {
	tok, err := dec.Token()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.ErrUnexpectedEOF
		}
		return nil, err
	}

	switch v := tok.(type) {
	case json.Delim:
		switch v {
		case '{':
			m := Map()
			for dec.More() {
				keyTok, err := dec.Token()
				if err != nil {
					return nil, err
				}
				key, ok := keyTok.(string)
				if !ok {
					return nil, fmt.Errorf("unexpected object key %v", keyTok)
				}
				val, err := decodeValue(dec)
				if err != nil {
					return nil, err
				}
				m.Set(key, val)
			}
			if _, err := dec.Token(); err != nil {
				return nil, err
			}
			return m, nil
		case '[':
			s := Seq()
			for dec.More() {
				val, err := decodeValue(dec)
				if err != nil {
					return nil, err
				}
				s.Items = append(s.Items, val)
			}
			if _, err := dec.Token(); err != nil {
				return nil, err
			}
			return s, nil
		default:
			return nil, fmt.Errorf("unexpected delimiter %q", v)
		}
	case string:
		return String(v), nil
	case json.Number:
		return Number(v.String()), nil
	case bool:
		return Bool(v), nil
	case nil:
		return Null(), nil
	default:
		return nil, fmt.Errorf("unexpected token %T", tok)
	}
}

// MarshalJSON writes the tree with mapping keys in stored order.
func (n *Node) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	if err := n.encode(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (n *Node) encode(buf *bytes.Buffer) error {
	if n == nil {
		buf.WriteString("null")
		return nil
	}
	switch n.Kind {
	case KindScalar:
		switch n.Type {
		case ScalarNull:
			buf.WriteString("null")
		case ScalarBool, ScalarNumber:
			buf.WriteString(n.Value)
		default:
			b, err := json.Marshal(n.Value)
			if err != nil {
				return err
			}
			buf.Write(b)
		}
	case KindSequence:
		buf.WriteByte('[')
		for i, it := range n.Items {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := it.encode(buf); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	case KindMapping:
		buf.WriteByte('{')
		for i, f := range n.Fields {
			if i > 0 {
				buf.WriteByte(',')
			}
			k, err := json.Marshal(f.Key)
			if err != nil {
				return err
			}
			buf.Write(k)
			buf.WriteByte(':')
			if err := f.Value.encode(buf); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
	default:
		return fmt.Errorf("cannot encode node of %s", n.Kind)
	}
	return nil
}

// UnmarshalJSON lets a Node sit inside structs decoded with encoding/json.
func (n *Node) UnmarshalJSON(data []byte) error {
	parsed, err := ParseJSON(data)
	if err != nil {
		return err
	}
	*n = *parsed
	return nil
}

// FromYAML converts a yaml.v3 node tree, keeping mapping order.
func FromYAML(y *yaml.Node) (*Node, error) {
	if y == nil {
		return Null(), nil
	}
	switch y.Kind {
	case yaml.DocumentNode:
		if len(y.Content) == 0 {
			return Null(), nil
		}
		return FromYAML(y.Content[0])
	case yaml.AliasNode:
		return FromYAML(y.Alias)
	case yaml.SequenceNode:
		s := Seq()
		for _, c := range y.Content {
			item, err := FromYAML(c)
			if err != nil {
				return nil, err
			}
			s.Items = append(s.Items, item)
		}
		return s, nil
	case yaml.MappingNode:
		if len(y.Content)%2 != 0 {
			return nil, fmt.Errorf("line %d: mapping has a key without a value", y.Line)
		}
		m := Map()
		for i := 0; i < len(y.Content); i += 2 {
			val, err := FromYAML(y.Content[i+1])
			if err != nil {
				return nil, err
			}
			m.Set(y.Content[i].Value, val)
		}
		return m, nil
	case yaml.ScalarNode:
		switch y.ShortTag() {
		case "!!null":
			return Null(), nil
		case "!!bool":
			var b bool
			if err := y.Decode(&b); err != nil {
				return nil, fmt.Errorf("line %d: %w", y.Line, err)
			}
			return Bool(b), nil
		case "!!int", "!!float":
			return Number(y.Value), nil
		default:
			return String(y.Value), nil
		}
	default:
		return nil, fmt.Errorf("line %d: unsupported yaml node kind %d", y.Line, y.Kind)
	}
}

// UnmarshalYAML lets a Node sit inside structs decoded with yaml.v3.
func (n *Node) UnmarshalYAML(value *yaml.Node) error {
	parsed, err := FromYAML(value)
	if err != nil {
		return err
	}
	*n = *parsed
	return nil
}
