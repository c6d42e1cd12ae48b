package message

import (
	"bytes"
	"encoding/json"
	"errors"
)

var (
	ErrNoMessages  = errors.New("envelope does not contain a messages array")
	ErrNotAnObject = errors.New("envelope is not a JSON object")
)

// Envelope is a server reply or webhook body carrying an ordered batch of
// messages. DomainKeyEcho is the domain key the server believes we hold.
type Envelope struct {
	DomainKeyEcho string
	Messages      []Raw
}

// Raw is an undecoded message. Its type is peeked so the retrieve pass can
// run before any other message is decoded.
type Raw struct {
	Type Type
	body json.RawMessage
}

func NewRaw(body json.RawMessage) Raw {
	var peek struct {
		Type Type `json:"type"`
	}
	_ = json.Unmarshal(body, &peek)

	return Raw{
		Type: peek.Type.normalize(),
		body: body,
	}
}

func (r Raw) Body() json.RawMessage {
	return r.body
}

// Parse decodes an envelope. A missing or non-array "messages" member is not
// a decode error; it leaves Messages nil so the caller can reject it.
func Parse(data []byte) (*Envelope, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || data[0] != '{' {
		return nil, ErrNotAnObject
	}

	var wire struct {
		DomainKey json.RawMessage `json:"mycryptocheckout"`
		Messages  json.RawMessage `json:"messages"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return nil, err
	}

	env := &Envelope{DomainKeyEcho: scalarString(wire.DomainKey)}

	var items []json.RawMessage
	if err := json.Unmarshal(wire.Messages, &items); err != nil || items == nil {
		return env, nil
	}

	env.Messages = make([]Raw, 0, len(items))
	for _, item := range items {
		env.Messages = append(env.Messages, NewRaw(item))
	}
	return env, nil
}

// scalarString accepts both quoted and bare scalar values.
func scalarString(v json.RawMessage) string {
	var s string
	if err := json.Unmarshal(v, &s); err == nil {
		return s
	}
	v = bytes.TrimSpace(v)
	if bytes.Equal(v, []byte("null")) {
		return ""
	}
	return string(v)
}
