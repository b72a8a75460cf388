package schema

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
)

// Fingerprint computes the deterministic cache key for (source, params):
// SHA-256 of the canonical JSON encoding of the pair, keys sorted, compact
// separators. Params that fail to marshal are stringified field-by-field,
// mirroring the stringification fallback of the system this core replaces.
func Fingerprint(source string, params map[string]any) string {
	canonical, err := canonicalJSON(source, params)
	if err != nil {
		canonical, _ = canonicalJSON(source, stringifyParams(params))
	}
	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:])
}

// canonicalJSON renders [source, params] as a compact, key-sorted JSON
// array so that any two orderings of params produce identical bytes.
func canonicalJSON(source string, params map[string]any) ([]byte, error) {
	encodedParams, err := encodeSorted(params)
	if err != nil {
		return nil, err
	}
	pair := []json.RawMessage{mustQuote(source), encodedParams}
	return json.Marshal(pair)
}

func encodeSorted(m map[string]any) (json.RawMessage, error) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	buf := []byte{'{'}
	for i, k := range keys {
		if i > 0 {
			buf = append(buf, ',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf = append(buf, kb...)
		buf = append(buf, ':')

		v := m[k]
		var vb []byte
		if nested, ok := v.(map[string]any); ok {
			vb, err = encodeSorted(nested)
		} else {
			vb, err = json.Marshal(v)
		}
		if err != nil {
			return nil, err
		}
		buf = append(buf, vb...)
	}
	buf = append(buf, '}')
	return buf, nil
}

func mustQuote(s string) json.RawMessage {
	b, _ := json.Marshal(s)
	return b
}

func stringifyParams(params map[string]any) map[string]any {
	out := make(map[string]any, len(params))
	for k, v := range params {
		out[k] = fmt.Sprintf("%v", v)
	}
	return out
}
