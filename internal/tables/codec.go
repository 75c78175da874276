package tables

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// encodePayload marshals v without HTML escaping, so payloads hold text
// exactly as entered.
func encodePayload(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	// json.Encoder adds a trailing newline.
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

func decodePayload(table, id string, data []byte, v any) error {
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode %s/%s payload: %w", table, id, err)
	}
	return nil
}
