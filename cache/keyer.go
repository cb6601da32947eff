package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
)

// Keyer derives cache keys from requests.
//
// Contract:
// - Determinism: the key is a pure function of the request's observable
// state; equal requests must produce equal keys.
// - Concurrency: implementations must be safe for concurrent use.
// - Collisions: requests that render identically share a key. Pick a more
// discriminating Keyer when that is not acceptable.
type Keyer interface {
	Key(request any) (string, error)
}

// KeyerFunc adapts a function to Keyer.
type KeyerFunc func(request any) (string, error)

// Key calls f.
func (f KeyerFunc) Key(request any) (string, error) { return f(request) }

// StringKeyer uses the request's canonical text as its key: String() for a
// fmt.Stringer, otherwise %+v.
type StringKeyer struct{}

// Key renders request as text.
func (StringKeyer) Key(request any) (string, error) {
	switch r := request.(type) {
	case nil:
		return "<nil>", nil
	case string:
		return r, nil
	case fmt.Stringer:
		return r.String(), nil
	default:
		return fmt.Sprintf("%+v", r), nil
	}
}

// HashKeyer hashes the canonical JSON form of a request.
// Format: <Prefix>:<hash>, where hash is the first 16 hex characters of
// SHA-256(canonical JSON(request)). Prefix defaults to "cache".
type HashKeyer struct {
	Prefix string
}

// Key generates a deterministic hashed key.
func (k HashKeyer) Key(request any) (string, error) {
	canonical, err := canonicalize(request)
	if err != nil {
		return "", fmt.Errorf("cache: failed to canonicalize request: %w", err)
	}

	prefix := k.Prefix
	if prefix == "" {
		prefix = "cache"
	}

	sum := sha256.Sum256(canonical)
	return prefix + ":" + hex.EncodeToString(sum[:8]), nil
}

// canonicalize produces a deterministic JSON representation of v.
// Generic maps and slices are walked so their keys come out sorted; other
// values go through encoding/json, which already sorts map keys.
func canonicalize(v any) ([]byte, error) {
	switch val := v.(type) {
	case nil:
		return []byte("null"), nil
	case map[string]any:
		return canonicalizeMap(val)
	case []any:
		return canonicalizeSlice(val)
	default:
		return json.Marshal(v)
	}
}

func canonicalizeMap(m map[string]any) ([]byte, error) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := []byte{'{'}
	for i, k := range keys {
		if i > 0 {
			out = append(out, ',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		vb, err := canonicalize(m[k])
		if err != nil {
			return nil, err
		}
		out = append(out, kb...)
		out = append(out, ':')
		out = append(out, vb...)
	}
	return append(out, '}'), nil
}

func canonicalizeSlice(s []any) ([]byte, error) {
	out := []byte{'['}
	for i, v := range s {
		if i > 0 {
			out = append(out, ',')
		}
		vb, err := canonicalize(v)
		if err != nil {
			return nil, err
		}
		out = append(out, vb...)
	}
	return append(out, ']'), nil
}

var (
	_ Keyer = StringKeyer{}
	_ Keyer = HashKeyer{}
	_ Keyer = KeyerFunc(nil)
)
