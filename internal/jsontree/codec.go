package jsontree

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// Parse decodes a single JSON document, keeping object key order.
func Parse(data []byte) (Value, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	v, err := parseValue(dec)
	if err != nil {
		return Value{}, err
	}
	if _, err := dec.Token(); err != io.EOF {
		if err == nil {
			return Value{}, errors.New("jsontree: trailing data after document")
		}
		return Value{}, fmt.Errorf("jsontree: %w", err)
	}
	return v, nil
}

// MustParse is Parse for literals known to be valid.
func MustParse(s string) Value {
	v, err := Parse([]byte(s))
	if err != nil {
		panic(err)
	}
	return v
}

func parseValue(dec *json.Decoder) (Value, error) {
	tok, err := dec.Token()
	if err != nil {
		if err == io.EOF {
			return Value{}, errors.New("jsontree: unexpected end of input")
		}
		return Value{}, fmt.Errorf("jsontree: %w", err)
	}
	switch t := tok.(type) {
	case nil:
		return Null(), nil
	case bool:
		return NewBool(t), nil
	case json.Number:
		return NewNumber(t), nil
	case string:
		return NewString(t), nil
	case json.Delim:
		switch t {
		case '[':
			items := []Value{}
			for dec.More() {
				item, err := parseValue(dec)
				if err != nil {
					return Value{}, err
				}
				items = append(items, item)
			}
			if _, err := dec.Token(); err != nil {
				return Value{}, fmt.Errorf("jsontree: %w", err)
			}
			return Value{kind: ArrayKind, items: items}, nil
		case '{':
			o := &object{fields: map[string]Value{}}
			for dec.More() {
				keyTok, err := dec.Token()
				if err != nil {
					return Value{}, fmt.Errorf("jsontree: %w", err)
				}
				key, ok := keyTok.(string)
				if !ok {
					return Value{}, fmt.Errorf("jsontree: unexpected object key %v", keyTok)
				}
				member, err := parseValue(dec)
				if err != nil {
					return Value{}, err
				}
				if _, dup := o.fields[key]; !dup {
					o.keys = append(o.keys, key)
				}
				o.fields[key] = member
			}
			if _, err := dec.Token(); err != nil {
				return Value{}, fmt.Errorf("jsontree: %w", err)
			}
			return Value{kind: ObjectKind, obj: o}, nil
		}
	}
	return Value{}, fmt.Errorf("jsontree: unexpected token %v", tok)
}

// MarshalJSON writes the tree compactly with object keys in insertion order.
func (v Value) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	if err := v.encode(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (v *Value) UnmarshalJSON(data []byte) error {
	parsed, err := Parse(data)
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

// MarshalIndent is MarshalJSON followed by json.Indent.
func MarshalIndent(v Value, prefix, indent string) ([]byte, error) {
	compact, err := v.MarshalJSON()
	if err != nil {
		return nil, err
	}
	var out bytes.Buffer
	if err := json.Indent(&out, compact, prefix, indent); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}

func (v Value) String() string {
	b, err := v.MarshalJSON()
	if err != nil {
		return fmt.Sprintf("<invalid: %v>", err)
	}
	return string(b)
}

func (v Value) encode(buf *bytes.Buffer) error {
	switch v.kind {
	case NullKind:
		buf.WriteString("null")
	case BoolKind:
		if v.b {
			buf.WriteString("true")
		} else {
			buf.WriteString("false")
		}
	case NumberKind:
		if !json.Valid([]byte(v.num)) {
			return fmt.Errorf("jsontree: invalid number %q", string(v.num))
		}
		buf.WriteString(string(v.num))
	case StringKind:
		writeString(buf, v.str)
	case ArrayKind:
		buf.WriteByte('[')
		for i, item := range v.items {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := item.encode(buf); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	case ObjectKind:
		buf.WriteByte('{')
		for i, k := range v.obj.keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			writeString(buf, k)
			buf.WriteByte(':')
			if err := v.obj.fields[k].encode(buf); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
	}
	return nil
}

func writeString(buf *bytes.Buffer, s string) {
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	// Encode always terminates with a newline.
	_ = enc.Encode(s)
	buf.Truncate(buf.Len() - 1)
}

// FromGo converts any json-marshalable Go value into a tree.
func FromGo(in any) (Value, error) {
	b, err := json.Marshal(in)
	if err != nil {
		return Value{}, fmt.Errorf("jsontree: marshal: %w", err)
	}
	return Parse(b)
}

// Decode unmarshals the tree into out using encoding/json rules.
func Decode(v Value, out any) error {
	b, err := v.MarshalJSON()
	if err != nil {
		return err
	}
	return json.Unmarshal(b, out)
}
