package cachedstore

import jsoniter "github.com/json-iterator/go"

var json = jsoniter.ConfigCompatibleWithStandardLibrary

func encodeHeaders(h map[string]string) (string, error) {
	return json.MarshalToString(h)
}

func decodeHeaders(raw string) (map[string]string, error) {
	h := make(map[string]string)
	if err := json.UnmarshalFromString(raw, &h); err != nil {
		return nil, err
	}
	return h, nil
}
