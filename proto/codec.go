package proto

import (
	"google.golang.org/grpc/encoding"
	protobuf "google.golang.org/protobuf/proto"
)

// CodecName 內容子類型: application/grpc+proto
const CodecName = "proto"

// Codec 取代 gRPC 預設的 proto codec
//
// ledger.proto 的訊息 (本 package 的 struct) 以 protowire 依 `protobuf` tag 編碼，
// 其他 proto.Message (health、reflection) 交給 google.golang.org/protobuf。
type Codec struct{}

func (Codec) Marshal(v any) ([]byte, error) {
	if m, ok := v.(protobuf.Message); ok {
		return protobuf.Marshal(m)
	}
	return marshalWire(v)
}

func (Codec) Unmarshal(data []byte, v any) error {
	if m, ok := v.(protobuf.Message); ok {
		return protobuf.Unmarshal(data, m)
	}
	return unmarshalWire(data, v)
}

func (Codec) Name() string {
	return CodecName
}

func init() {
	encoding.RegisterCodec(Codec{})
}
