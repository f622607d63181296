// Package paneov1 defines the paneo.v1.Control service spoken over the
// daemon's unix socket.
//
// Messages are plain Go structs carried by a JSON codec registered under
// the "json" content subtype. Clients select it with
// grpc.CallContentSubtype(CodecName); NewControlClient does this for every call.
package paneov1

import (
	"encoding/json"

	"google.golang.org/grpc/encoding"
)

// CodecName is the content subtype of the JSON codec.
const CodecName = "json"

func init() {
	encoding.RegisterCodec(jsonCodec{})
}

type jsonCodec struct{}

func (jsonCodec) Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

func (jsonCodec) Unmarshal(data []byte, v any) error {
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, v)
}

func (jsonCodec) Name() string {
	return CodecName
}
