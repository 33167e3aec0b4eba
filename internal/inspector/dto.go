package inspector

import jsoniter "github.com/json-iterator/go"

// SagaResponse is the raw persisted state of one saga.
type SagaResponse struct {
	CorrelationID string            `json:"correlation_id"`
	Type          string            `json:"type"`
	Blob          any               `json:"blob"`
	Headers       map[string]string `json:"headers"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	TraceID string `json:"trace_id,omitempty"`
}

// blobValue embeds JSON blobs as JSON and anything else (msgpack/base64,
// plain text) as a string.
func blobValue(blob string) any {
	if json.Valid([]byte(blob)) {
		return jsoniter.RawMessage(blob)
	}
	return blob
}
