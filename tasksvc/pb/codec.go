package pb

import (
	"encoding/json"

	"google.golang.org/grpc"
	"google.golang.org/grpc/encoding"
)

// CodecName is the content-subtype the task service messages travel under.
const CodecName = "json"

type codec struct{}

func (codec) Marshal(v interface{}) ([]byte, error) { return json.Marshal(v) }

func (codec) Unmarshal(data []byte, v interface{}) error { return json.Unmarshal(data, v) }

func (codec) Name() string { return CodecName }

func init() {
	encoding.RegisterCodec(codec{})
}

// WithCodec makes every call on the connection use the task message codec.
func WithCodec() grpc.DialOption {
	return grpc.WithDefaultCallOptions(grpc.CallContentSubtype(CodecName))
}
