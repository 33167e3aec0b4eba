package saga

// Codec converts a saga payload to and from the text stored in the blob
// column. Implementations must round-trip: Decode(Encode(x)) equals x for
// every valid payload.
//
// Ready-made codecs live in the codec subpackage.
type Codec[T any] interface {
	Encode(data T) (string, error)
	Decode(blob string) (T, error)
}
