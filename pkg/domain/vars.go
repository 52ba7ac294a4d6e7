package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Vars is the string-keyed variable bag of a Session.
// Keys keep their insertion order, including across JSON round trips.
// The zero value is ready to use.
type Vars struct {
	keys   []string
	values map[string]string
}

// VarsOf builds Vars from alternating key/value pairs.
func VarsOf(pairs ...string) Vars {
	var v Vars
	for i := 0; i+1 < len(pairs); i += 2 {
		v.Set(pairs[i], pairs[i+1])
	}
	return v
}

// Get returns the value stored under key.
func (v Vars) Get(key string) (string, bool) {
	val, ok := v.values[key]
	return val, ok
}

// Set stores value under key. Existing keys keep their position.
func (v *Vars) Set(key, value string) {
	if v.values == nil {
		v.values = make(map[string]string)
	}
	if _, ok := v.values[key]; !ok {
		v.keys = append(v.keys, key)
	}
	v.values[key] = value
}

// Delete removes key.
func (v *Vars) Delete(key string) {
	if _, ok := v.values[key]; !ok {
		return
	}
	delete(v.values, key)
	for i, k := range v.keys {
		if k == key {
			v.keys = append(v.keys[:i], v.keys[i+1:]...)
			break
		}
	}
}

// Len returns the number of keys.
func (v Vars) Len() int { return len(v.keys) }

// Keys returns the keys in insertion order.
func (v Vars) Keys() []string {
	out := make([]string, len(v.keys))
	copy(out, v.keys)
	return out
}

// Map returns an unordered copy.
func (v Vars) Map() map[string]string {
	out := make(map[string]string, len(v.values))
	for k, val := range v.values {
		out[k] = val
	}
	return out
}

// Clone returns a deep copy.
func (v Vars) Clone() Vars {
	var out Vars
	for _, k := range v.keys {
		out.Set(k, v.values[k])
	}
	return out
}

func (v Vars) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range v.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		vb, err := json.Marshal(v.values[k])
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (v *Vars) UnmarshalJSON(data []byte) error {
	*v = Vars{}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		return nil
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("vars: expected object, got %v", tok)
	}

	for dec.More() {
		kt, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := kt.(string)
		if !ok {
			return fmt.Errorf("vars: expected string key, got %v", kt)
		}
		var raw any
		if err := dec.Decode(&raw); err != nil {
			return fmt.Errorf("vars: key %q: %w", key, err)
		}
		switch val := raw.(type) {
		case nil:
			v.Set(key, "")
		case string:
			v.Set(key, val)
		default:
			v.Set(key, fmt.Sprint(val))
		}
	}
	_, err = dec.Token()
	return err
}
