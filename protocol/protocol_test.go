package protocol

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"
)

func TestDeliveryReaches(t *testing.T) {
	cases := []struct {
		d      Delivery
		to     string
		expect bool
	}{
		{Broadcast(Freeze, nil), "a", true},
		{Relay("a", Freeze, nil), "a", false},
		{Relay("a", Freeze, nil), "b", true},
		{Direct("a", Freeze, nil), "a", true},
		{Direct("a", Freeze, nil), "b", false},
	}
	for _, tc := range cases {
		if got := tc.d.Reaches(tc.to); got != tc.expect {
			t.Errorf("%s delivery to %q: got %v, want %v", tc.d.Scope, tc.to, got, tc.expect)
		}
	}
}

func TestJSONEnvelopeShape(t *testing.T) {
	frame, err := JSON{}.Encode(Event{Type: AdminPaintEvt, Data: AdminPaint{Row: 1, Col: 2, ColorHex: "ff0000"}})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(frame, &raw); err != nil {
		t.Fatalf("frame is not json: %v", err)
	}
	if string(raw["type"]) != `"admin-paint"` {
		t.Fatalf("unexpected type field %s", raw["type"])
	}
	if !bytes.Contains(raw["data"], []byte(`"colorHex":"ff0000"`)) {
		t.Fatalf("unexpected data field %s", raw["data"])
	}

	bare, err := JSON{}.Encode(Event{Type: AdminFreezeAllCmd})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if string(bare) != `{"type":"admin-freeze-all"}` {
		t.Fatalf("unexpected bare frame %s", bare)
	}
}

func TestCodecsCarryPayloads(t *testing.T) {
	row, col := 3, 4
	for _, c := range []Codec{JSON{}, MsgPack{}} {
		t.Run(c.Name(), func(t *testing.T) {
			msg, err := Loopback(c, Event{Type: StopCharacterCmd, Data: StopCharacter{ID: "c1", TileRow: &row, TileCol: &col}})
			if err != nil {
				t.Fatalf("loopback: %v", err)
			}
			if msg.Type != StopCharacterCmd {
				t.Fatalf("type %q", msg.Type)
			}
			var stop StopCharacter
			if err := msg.Bind(&stop); err != nil {
				t.Fatalf("bind: %v", err)
			}
			if stop.ID != "c1" || stop.TileRow == nil || *stop.TileRow != 3 || *stop.TileCol != 4 {
				t.Fatalf("unexpected payload %+v", stop)
			}

			msg, err = Loopback(c, Event{Type: ChangeImageCmd, Data: ChangeImage{CharacterID: "c1", FileType: "image/png", File: []byte{0x89, 'P', 'N', 'G'}}})
			if err != nil {
				t.Fatalf("loopback: %v", err)
			}
			var img ChangeImage
			if err := msg.Bind(&img); err != nil {
				t.Fatalf("bind: %v", err)
			}
			if !bytes.Equal(img.File, []byte{0x89, 'P', 'N', 'G'}) {
				t.Fatalf("file bytes lost: %v", img.File)
			}
		})
	}
}

func TestBindWithoutPayload(t *testing.T) {
	for _, c := range []Codec{JSON{}, MsgPack{}} {
		msg, err := Loopback(c, Event{Type: AdminFreezeAllCmd})
		if err != nil {
			t.Fatalf("%s loopback: %v", c.Name(), err)
		}
		v := SpawnMinion{ImageName: "keep"}
		if err := msg.Bind(&v); err != nil {
			t.Fatalf("%s bind: %v", c.Name(), err)
		}
		if v.ImageName != "keep" {
			t.Fatalf("%s: absent payload must not touch the target", c.Name())
		}
	}
}

func TestDecodeRejectsBadFrames(t *testing.T) {
	if _, err := (JSON{}).Decode([]byte("not json")); err == nil {
		t.Fatalf("expected json error")
	}
	if _, err := (JSON{}).Decode([]byte(`{"data":{}}`)); err == nil {
		t.Fatalf("expected missing type error")
	}
	if _, err := (MsgPack{}).Decode([]byte{0xc1}); err == nil {
		t.Fatalf("expected msgpack error")
	}

	msg, err := JSON{}.Decode([]byte(`{"type":"move-character","data":{"id":5}}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	var mv MoveCharacter
	if err := msg.Bind(&mv); err == nil {
		t.Fatalf("expected bind error for mistyped id")
	}
}

func TestCodecByName(t *testing.T) {
	for name, binary := range map[string]bool{"": false, "json": false, "msgpack": true} {
		c, err := CodecByName(name)
		if err != nil {
			t.Fatalf("%q: %v", name, err)
		}
		if c.Binary() != binary {
			t.Fatalf("%q: binary=%v", name, c.Binary())
		}
	}
	if _, err := CodecByName("xml"); !errors.Is(err, ErrUnknownCodec) {
		t.Fatalf("expected ErrUnknownCodec, got %v", err)
	}
}

func TestPayloadTablesCoverEveryEvent(t *testing.T) {
	if n := len(Inbound()); n != 8 {
		t.Fatalf("expected 8 inbound commands, got %d", n)
	}
	if n := len(Outbound()); n != 9 {
		t.Fatalf("expected 9 outbound events, got %d", n)
	}
}
