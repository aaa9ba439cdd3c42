package gateway

import "encoding/json"

func jsonMarshalString(v any) (string, error) {
	b, err := json.Marshal(v)
	return string(b), err
}

func jsonUnmarshalString(s string, dst any) error {
	return json.Unmarshal([]byte(s), dst)
}
