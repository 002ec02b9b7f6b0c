package api

import (
	"bytes"

	"github.com/goccy/go-json"
)

// wrapperKeys are synonymous payload envelopes, tried in order.
var wrapperKeys = []string{"value", "return"}

// Unpack decodes a public dialect body. Objects wrapped in one of the
// envelope keys are unwrapped once. Bodies that are not valid JSON are
// returned unchanged as a string. Numbers decode as json.Number so large
// appliance ids keep their precision.
func Unpack(body []byte) any {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return string(body)
	}

	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return string(body)
	}

	if m, ok := v.(map[string]any); ok {
		for _, key := range wrapperKeys {
			if inner, ok := m[key]; ok {
				return inner
			}
		}
	}
	return v
}

// Decode re-encodes an unpacked value into out.
func Decode(v any, out any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	return dec.Decode(out)
}
