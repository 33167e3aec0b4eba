package codec

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"
)

// Proto encodes protobuf payloads with protojson. New allocates the message
// that Decode fills, e.g.
//
//	codec.Proto[*structpb.Struct]{New: func() *structpb.Struct { return &structpb.Struct{} }}
type Proto[T proto.Message] struct {
	New func() T
}

func (c Proto[T]) Encode(data T) (string, error) {
	p, err := protojson.Marshal(data)
	if err != nil {
		return "", fmt.Errorf("codec: protojson encode: %w", err)
	}
	return string(p), nil
}

func (c Proto[T]) Decode(blob string) (T, error) {
	if c.New == nil {
		var zero T
		return zero, fmt.Errorf("codec: protojson decode: no message constructor")
	}
	data := c.New()
	if err := protojson.Unmarshal([]byte(blob), data); err != nil {
		return data, fmt.Errorf("codec: protojson decode: %w", err)
	}
	return data, nil
}
