package bridge

import (
	"encoding/json"

	"pgregory.net/rapid"
)

func encodeFields(t *rapid.T, v any) map[string]string {
	raw, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var out map[string]string
	if err := json.Unmarshal(raw, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	return out
}
