package protocol

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

// ErrUnknownCodec is returned by CodecByName for unsupported names.
var ErrUnknownCodec = errors.New("unknown codec")

// Codec frames events for one transport.
type Codec interface {
	Name() string
	// Binary reports whether frames must be sent as binary messages.
	Binary() bool
	Encode(ev Event) ([]byte, error)
	Decode(frame []byte) (Message, error)
}

// Message is a decoded inbound envelope whose payload is bound on demand.
type Message struct {
	Type string
	data []byte
	bind func(data []byte, v any) error
}

// Bind decodes the payload into v. An absent payload leaves v untouched.
func (m Message) Bind(v any) error {
	if len(m.data) == 0 || m.bind == nil {
		return nil
	}
	if err := m.bind(m.data, v); err != nil {
		return fmt.Errorf("bind %s payload: %w", m.Type, err)
	}
	return nil
}

// CodecByName resolves "json" (also the empty name) and "msgpack".
func CodecByName(name string) (Codec, error) {
	switch name {
	case "", "json":
		return JSON{}, nil
	case "msgpack":
		return MsgPack{}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownCodec, name)
}

// JSON is the default text codec.
type JSON struct{}

type jsonEnvelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

func (JSON) Name() string { return "json" }
func (JSON) Binary() bool { return false }

func (JSON) Encode(ev Event) ([]byte, error) {
	var raw json.RawMessage
	if ev.Data != nil {
		b, err := json.Marshal(ev.Data)
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", ev.Type, err)
		}
		raw = b
	}
	return json.Marshal(jsonEnvelope{Type: ev.Type, Data: raw})
}

func (JSON) Decode(frame []byte) (Message, error) {
	var env jsonEnvelope
	if err := json.Unmarshal(frame, &env); err != nil {
		return Message{}, fmt.Errorf("decode envelope: %w", err)
	}
	if env.Type == "" {
		return Message{}, errors.New("decode envelope: missing type")
	}
	if bytes.Equal(env.Data, []byte("null")) {
		env.Data = nil
	}
	return Message{Type: env.Type, data: env.Data, bind: json.Unmarshal}, nil
}

// MsgPack is the binary codec. Field names follow the json tags.
type MsgPack struct{}

type msgpackEnvelope struct {
	Type string             `msgpack:"type"`
	Data msgpack.RawMessage `msgpack:"data,omitempty"`
}

func (MsgPack) Name() string { return "msgpack" }
func (MsgPack) Binary() bool { return true }

func msgpackMarshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.SetCustomStructTag("json")
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func msgpackUnmarshal(data []byte, v any) error {
	dec := msgpack.NewDecoder(bytes.NewReader(data))
	dec.SetCustomStructTag("json")
	return dec.Decode(v)
}

func (MsgPack) Encode(ev Event) ([]byte, error) {
	env := msgpackEnvelope{Type: ev.Type}
	if ev.Data != nil {
		b, err := msgpackMarshal(ev.Data)
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", ev.Type, err)
		}
		env.Data = b
	}
	return msgpack.Marshal(&env)
}

func (MsgPack) Decode(frame []byte) (Message, error) {
	var env msgpackEnvelope
	if err := msgpack.Unmarshal(frame, &env); err != nil {
		return Message{}, fmt.Errorf("decode envelope: %w", err)
	}
	if env.Type == "" {
		return Message{}, errors.New("decode envelope: missing type")
	}
	return Message{Type: env.Type, data: env.Data, bind: msgpackUnmarshal}, nil
}

// Loopback encodes an event and decodes it again as a peer would see it.
func Loopback(c Codec, ev Event) (Message, error) {
	frame, err := c.Encode(ev)
	if err != nil {
		return Message{}, err
	}
	return c.Decode(frame)
}
