package codec

import (
	"encoding/base64"
	"fmt"

	"github.com/vmihailenco/msgpack/v4"
)

// Msgpack encodes payloads with MessagePack and stores the bytes as
// standard base64 text.
type Msgpack[T any] struct{}

func (Msgpack[T]) Encode(data T) (string, error) {
	p, err := msgpack.Marshal(data)
	if err != nil {
		return "", fmt.Errorf("codec: msgpack encode: %w", err)
	}
	return base64.StdEncoding.EncodeToString(p), nil
}

func (Msgpack[T]) Decode(blob string) (T, error) {
	var data T
	p, err := base64.StdEncoding.DecodeString(blob)
	if err != nil {
		return data, fmt.Errorf("codec: msgpack base64: %w", err)
	}
	if err := msgpack.Unmarshal(p, &data); err != nil {
		return data, fmt.Errorf("codec: msgpack decode: %w", err)
	}
	return data, nil
}
