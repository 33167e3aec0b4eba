// Package codec provides saga payload codecs.
//
// Every codec produces text, since the blob column is a text column:
// JSON and protojson are text already, msgpack is base64-encoded.
package codec

import (
	"fmt"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// JSON encodes payloads as JSON. Field names follow the encoding/json rules,
// so existing `json:"..."` tags apply.
type JSON[T any] struct{}

func (JSON[T]) Encode(data T) (string, error) {
	p, err := json.Marshal(data)
	if err != nil {
		return "", fmt.Errorf("codec: json encode: %w", err)
	}
	return string(p), nil
}

func (JSON[T]) Decode(blob string) (T, error) {
	var data T
	if err := json.UnmarshalFromString(blob, &data); err != nil {
		return data, fmt.Errorf("codec: json decode: %w", err)
	}
	return data, nil
}

// Raw stores the payload text untouched. It is meant for tools that inspect
// blobs without knowing their shape.
type Raw struct{}

func (Raw) Encode(data string) (string, error) { return data, nil }

func (Raw) Decode(blob string) (string, error) { return blob, nil }
