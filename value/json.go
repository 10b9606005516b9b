// SPDX-License-Identifier: Apache-2.0
package value

import (
	"encoding/json"
	"fmt"
)

// wireEnvelope is the stable JSON round-trip form. Plain JSON scalars
// (string, number, bool, null, array, object) are ambiguous between this
// language's Null/Undefined/Error/Number variants, so every Value marshals
// through an explicit tagged envelope instead of trying to infer the kind
// back from bare JSON - this is what makes Undefined and Error (neither of
// which JSON has a native spelling for) round-trip losslessly (spec.md §6,
// §8's "Value round-trip" property).
type wireEnvelope struct {
	Kind  string          `json:"kind"`
	Value json.RawMessage `json:"value,omitempty"`
}

// MarshalJSON implements the wire form for any Value.
func MarshalJSON(v Value) ([]byte, error) {
	switch t := v.(type) {
	case nullValue:
		return json.Marshal(wireEnvelope{Kind: "null"})
	case undefinedValue:
		return json.Marshal(wireEnvelope{Kind: "undefined"})
	case Bool:
		raw, _ := json.Marshal(bool(t))
		return json.Marshal(wireEnvelope{Kind: "boolean", Value: raw})
	case *Number:
		raw, _ := json.Marshal(t.String())
		return json.Marshal(wireEnvelope{Kind: "number", Value: raw})
	case Text:
		raw, _ := json.Marshal(string(t))
		return json.Marshal(wireEnvelope{Kind: "text", Value: raw})
	case *Array:
		elems := make([]json.RawMessage, len(t.Elements))
		for i, e := range t.Elements {
			b, err := MarshalJSON(e)
			if err != nil {
				return nil, err
			}
			elems[i] = b
		}
		raw, _ := json.Marshal(elems)
		return json.Marshal(wireEnvelope{Kind: "array", Value: raw})
	case *Object:
		ordered := make([]struct {
			K string          `json:"k"`
			V json.RawMessage `json:"v"`
		}, 0, t.Len())
		for _, k := range t.Keys() {
			b, err := MarshalJSON(t.Get(k))
			if err != nil {
				return nil, err
			}
			ordered = append(ordered, struct {
				K string          `json:"k"`
				V json.RawMessage `json:"v"`
			}{K: k, V: b})
		}
		raw, _ := json.Marshal(ordered)
		return json.Marshal(wireEnvelope{Kind: "object", Value: raw})
	case *Error:
		raw, _ := json.Marshal(t.Message)
		return json.Marshal(wireEnvelope{Kind: "error", Value: raw})
	default:
		return nil, fmt.Errorf("value: unmarshalable kind %T", v)
	}
}

// UnmarshalJSON is the inverse of MarshalJSON.
func UnmarshalJSON(data []byte) (Value, error) {
	var env wireEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, err
	}
	switch env.Kind {
	case "null":
		return Null, nil
	case "undefined":
		return Undefined, nil
	case "boolean":
		var b bool
		if err := json.Unmarshal(env.Value, &b); err != nil {
			return nil, err
		}
		return Bool(b), nil
	case "number":
		var s string
		if err := json.Unmarshal(env.Value, &s); err != nil {
			return nil, err
		}
		return ParseNumber(s)
	case "text":
		var s string
		if err := json.Unmarshal(env.Value, &s); err != nil {
			return nil, err
		}
		return Text(s), nil
	case "array":
		var elems []json.RawMessage
		if err := json.Unmarshal(env.Value, &elems); err != nil {
			return nil, err
		}
		out := &Array{Elements: make([]Value, len(elems))}
		for i, raw := range elems {
			v, err := UnmarshalJSON(raw)
			if err != nil {
				return nil, err
			}
			out.Elements[i] = v
		}
		return out, nil
	case "object":
		var pairs []struct {
			K string          `json:"k"`
			V json.RawMessage `json:"v"`
		}
		if err := json.Unmarshal(env.Value, &pairs); err != nil {
			return nil, err
		}
		out := NewObject()
		for _, p := range pairs {
			v, err := UnmarshalJSON(p.V)
			if err != nil {
				return nil, err
			}
			out.Set(p.K, v)
		}
		return out, nil
	case "error":
		var s string
		if err := json.Unmarshal(env.Value, &s); err != nil {
			return nil, err
		}
		return &Error{Message: s}, nil
	default:
		return nil, fmt.Errorf("value: unknown wire kind %q", env.Kind)
	}
}
