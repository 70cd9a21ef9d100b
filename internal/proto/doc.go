// Package proto holds the Go bindings for proto/registry.proto.
//
// The bindings are maintained by hand in the classic generated style
// (struct tags + oneof wrapper types) so the module builds without a
// protoc toolchain. When the schema changes, edit proto/registry.proto
// first, then mirror the change here; the directive below regenerates
// reference output to diff against.
//
//go:generate protoc --proto_path=../../proto --go_out=. --go-grpc_out=. registry.proto
package proto

import (
	"google.golang.org/protobuf/encoding/prototext"
	"google.golang.org/protobuf/protoadapt"
)

func messageString(m protoadapt.MessageV1) string {
	return prototext.MarshalOptions{}.Format(protoadapt.MessageV2Of(m))
}
