// Package chatpb is the wire contract for both gRPC services this module
// exposes: the inter-node Peer service (RequestVote/AppendEntries/
// InstallSnapshot) and the ClientService chat clients speak.
//
// The message types below are plain structs, not protoreflect-compatible
// protobuf messages — there is no protoc step in this module, so rather
// than hand-roll a protobuf wire format without a generator, the grpc
// codec registered in this file frames every request/response with
// encoding/gob, the same framing idiom pkg/wal and pkg/chatstate already
// use. google.golang.org/grpc's service dispatch, streaming, and status
// plumbing are otherwise exercised unchanged.
package chatpb

import (
	"bytes"
	"encoding/gob"
	"fmt"

	"google.golang.org/grpc/encoding"
)

// gobCodec implements encoding.Codec. Registering it under the name
// "proto" makes it the default codec grpc selects when a call specifies
// no content-subtype, which is every call this module makes.
type gobCodec struct{}

func (gobCodec) Marshal(v interface{}) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(v); err != nil {
		return nil, fmt.Errorf("chatpb: gob encode: %w", err)
	}
	return buf.Bytes(), nil
}

func (gobCodec) Unmarshal(data []byte, v interface{}) error {
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(v); err != nil {
		return fmt.Errorf("chatpb: gob decode: %w", err)
	}
	return nil
}

func (gobCodec) Name() string { return "proto" }

func init() {
	encoding.RegisterCodec(gobCodec{})
}
