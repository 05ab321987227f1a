// Package codec turns protocol messages into websocket frames and back.
package codec

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/gorilla/websocket"
	"google.golang.org/protobuf/encoding/protowire"

	"github.com/palemoky/bill-to-law/internal/protocol"
)

var ErrUnknownCodec = errors.New("unknown codec")

// Codec serializes messages for one connection.
type Codec interface {
	Name() string
	// FrameType is the websocket message type frames are written with.
	FrameType() int
	Encode(msg *protocol.Message) ([]byte, error)
	// Decode fills msg from data. msg may come from GetMessage.
	Decode(data []byte, msg *protocol.Message) error
}

const (
	NameJSON   = "json"
	NameBinary = "binary"
)

var (
	JSON   Codec = jsonCodec{}
	Binary Codec = binaryCodec{}
)

// ByName resolves a codec from a query parameter. Empty means JSON.
func ByName(name string) (Codec, error) {
	switch name {
	case "", NameJSON:
		return JSON, nil
	case NameBinary:
		return Binary, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownCodec, name)
}

type jsonCodec struct{}

func (jsonCodec) Name() string   { return NameJSON }
func (jsonCodec) FrameType() int { return websocket.TextMessage }

func (jsonCodec) Encode(msg *protocol.Message) ([]byte, error) {
	buf := GetBuffer()
	defer PutBuffer(buf)
	if err := json.NewEncoder(buf).Encode(msg); err != nil {
		return nil, err
	}
	// Encoder appends a newline.
	out := make([]byte, buf.Len()-1)
	copy(out, buf.Bytes())
	return out, nil
}

func (jsonCodec) Decode(data []byte, msg *protocol.Message) error {
	return json.Unmarshal(data, msg)
}

// Binary frame layout, protobuf wire format:
//
//	1: type    (bytes)
//	2: payload (bytes, JSON)
//	3: seq     (varint)
const (
	fieldType    protowire.Number = 1
	fieldPayload protowire.Number = 2
	fieldSeq     protowire.Number = 3
)

var ErrMalformedFrame = errors.New("malformed binary frame")

type binaryCodec struct{}

func (binaryCodec) Name() string   { return NameBinary }
func (binaryCodec) FrameType() int { return websocket.BinaryMessage }

func (binaryCodec) Encode(msg *protocol.Message) ([]byte, error) {
	size := protowire.SizeTag(fieldType) + protowire.SizeBytes(len(msg.Type))
	if len(msg.Payload) > 0 {
		size += protowire.SizeTag(fieldPayload) + protowire.SizeBytes(len(msg.Payload))
	}
	if msg.Seq != 0 {
		size += protowire.SizeTag(fieldSeq) + protowire.SizeVarint(uint64(msg.Seq))
	}

	b := make([]byte, 0, size)
	b = protowire.AppendTag(b, fieldType, protowire.BytesType)
	b = protowire.AppendString(b, string(msg.Type))
	if len(msg.Payload) > 0 {
		b = protowire.AppendTag(b, fieldPayload, protowire.BytesType)
		b = protowire.AppendBytes(b, msg.Payload)
	}
	if msg.Seq != 0 {
		b = protowire.AppendTag(b, fieldSeq, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(msg.Seq))
	}
	return b, nil
}

func (binaryCodec) Decode(data []byte, msg *protocol.Message) error {
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return fmt.Errorf("%w: %v", ErrMalformedFrame, protowire.ParseError(n))
		}
		data = data[n:]

		switch {
		case num == fieldType && typ == protowire.BytesType:
			v, m := protowire.ConsumeBytes(data)
			if m < 0 {
				return fmt.Errorf("%w: type: %v", ErrMalformedFrame, protowire.ParseError(m))
			}
			msg.Type = protocol.MessageType(v)
			n = m
		case num == fieldPayload && typ == protowire.BytesType:
			v, m := protowire.ConsumeBytes(data)
			if m < 0 {
				return fmt.Errorf("%w: payload: %v", ErrMalformedFrame, protowire.ParseError(m))
			}
			msg.Payload = append([]byte(nil), v...)
			n = m
		case num == fieldSeq && typ == protowire.VarintType:
			v, m := protowire.ConsumeVarint(data)
			if m < 0 {
				return fmt.Errorf("%w: seq: %v", ErrMalformedFrame, protowire.ParseError(m))
			}
			msg.Seq = int64(v)
			n = m
		default:
			n = protowire.ConsumeFieldValue(num, typ, data)
			if n < 0 {
				return fmt.Errorf("%w: field %d: %v", ErrMalformedFrame, num, protowire.ParseError(n))
			}
		}
		data = data[n:]
	}
	if msg.Type == "" {
		return fmt.Errorf("%w: missing type", ErrMalformedFrame)
	}
	return nil
}
