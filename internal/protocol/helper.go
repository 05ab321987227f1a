package protocol

import (
	"encoding/json"
	"errors"
)

var ErrEmptyPayload = errors.New("empty payload")

// NewMessage builds an unsequenced frame.
func NewMessage(msgType MessageType, payload any) (*Message, error) {
	return NewSequenced(msgType, payload, 0)
}

// NewSequenced builds a frame stamped with seq.
func NewSequenced(msgType MessageType, payload any, seq int64) (*Message, error) {
	var data json.RawMessage
	if payload != nil {
		var err error
		data, err = json.Marshal(payload)
		if err != nil {
			return nil, err
		}
	}
	return &Message{Type: msgType, Payload: data, Seq: seq}, nil
}

// MustNewMessage is NewMessage for payloads that always marshal.
func MustNewMessage(msgType MessageType, payload any) *Message {
	msg, err := NewMessage(msgType, payload)
	if err != nil {
		panic(err)
	}
	return msg
}

// Encode renders the frame as JSON.
func (m *Message) Encode() ([]byte, error) {
	return json.Marshal(m)
}

// Decode parses a JSON frame.
func Decode(data []byte) (*Message, error) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// ParsePayload unmarshals the frame payload into T.
func ParsePayload[T any](msg *Message) (*T, error) {
	if len(msg.Payload) == 0 {
		return nil, ErrEmptyPayload
	}
	var payload T
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}
