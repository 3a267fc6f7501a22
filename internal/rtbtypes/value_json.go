package rtbtypes

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// MarshalJSON renders the value as plain JSON, not as a tagged union, so
// template documents on disk stay ordinary JSON files.
func (v ConfigValue) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindNull:
		return []byte("null"), nil
	case KindBool:
		return json.Marshal(v.b)
	case KindNumber:
		return json.Marshal(v.n)
	case KindString:
		return json.Marshal(v.s)
	case KindArray:
		if v.arr == nil {
			return []byte("[]"), nil
		}
		return json.Marshal(v.arr)
	case KindObject:
		if v.obj == nil {
			return []byte("{}"), nil
		}
		return json.Marshal(v.obj)
	}
	return nil, fmt.Errorf("cannot marshal config value of kind %d", int(v.kind))
}

// UnmarshalJSON accepts any JSON value.
func (v *ConfigValue) UnmarshalJSON(data []byte) error {
	var raw interface{}
	d := json.NewDecoder(bytes.NewReader(data))
	d.UseNumber()
	if err := d.Decode(&raw); err != nil {
		return err
	}
	cv, err := FromInterface(raw)
	if err != nil {
		return err
	}
	*v = cv
	return nil
}

// FromInterface converts decoded JSON/YAML data into a ConfigValue.
// json.Number, all Go integer/float widths, and map[interface{}]interface{}
// (yaml.v2 legacy shape) are accepted.
func FromInterface(raw interface{}) (ConfigValue, error) {
	switch t := raw.(type) {
	case nil:
		return Null(), nil
	case bool:
		return Bool(t), nil
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return Null(), fmt.Errorf("invalid number %q: %w", t.String(), err)
		}
		return Number(f), nil
	case float64:
		return Number(t), nil
	case float32:
		return Number(float64(t)), nil
	case int:
		return Number(float64(t)), nil
	case int64:
		return Number(float64(t)), nil
	case uint64:
		return Number(float64(t)), nil
	case string:
		return String(t), nil
	case []interface{}:
		items := make([]ConfigValue, len(t))
		for i, it := range t {
			cv, err := FromInterface(it)
			if err != nil {
				return Null(), err
			}
			items[i] = cv
		}
		return Array(items...), nil
	case map[string]interface{}:
		m := make(map[string]ConfigValue, len(t))
		for k, it := range t {
			cv, err := FromInterface(it)
			if err != nil {
				return Null(), err
			}
			m[k] = cv
		}
		return Object(m), nil
	case map[interface{}]interface{}:
		m := make(map[string]ConfigValue, len(t))
		for k, it := range t {
			ks, ok := k.(string)
			if !ok {
				return Null(), fmt.Errorf("non-string object key %v", k)
			}
			cv, err := FromInterface(it)
			if err != nil {
				return Null(), err
			}
			m[ks] = cv
		}
		return Object(m), nil
	}
	return Null(), fmt.Errorf("unsupported config value type %T", raw)
}

// ToInterface converts back to plain Go data for JSON/YAML encoding.
func (v ConfigValue) ToInterface() interface{} {
	switch v.kind {
	case KindNull:
		return nil
	case KindBool:
		return v.b
	case KindNumber:
		return v.n
	case KindString:
		return v.s
	case KindArray:
		out := make([]interface{}, len(v.arr))
		for i, it := range v.arr {
			out[i] = it.ToInterface()
		}
		return out
	case KindObject:
		out := make(map[string]interface{}, len(v.obj))
		for k, it := range v.obj {
			out[k] = it.ToInterface()
		}
		return out
	}
	return nil
}
