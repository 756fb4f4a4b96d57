package wire

import (
	"bytes"
	"testing"

	"github.com/csnode/corenode/crypto/keys"
)

func TestFrameRoundTripNetworkMsg(t *testing.T) {
	f := &Frame{Flags: NetworkMsg, IDLo: 42, PacketCount: 1, Payload: []byte("hello")}
	buf := f.Encode()

	got, err := Decode(buf)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got.Sender != nil {
		t.Fatalf("NetworkMsg frame should carry no sender key")
	}
	if !bytes.Equal(got.Payload, []byte("hello")) {
		t.Fatalf("expected payload 'hello', got %q", got.Payload)
	}
	if got.IDLo != 42 || got.PacketCount != 1 {
		t.Fatalf("header fields mismatch: %+v", got)
	}
}

func TestFrameRoundTripWithSenderKey(t *testing.T) {
	var key keys.PublicKey
	key[0] = 0xAB

	f := &Frame{Flags: 0, IDLo: 1, PacketCount: 1, Sender: &key, Payload: []byte("body")}
	buf := f.Encode()

	got, err := Decode(buf)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got.Sender == nil || *got.Sender != key {
		t.Fatalf("expected sender key to round-trip")
	}
	if !bytes.Equal(got.Payload, []byte("body")) {
		t.Fatalf("payload mismatch")
	}
}

func TestFrameRoundTripFragmented(t *testing.T) {
	f := &Frame{
		Flags:       NetworkMsg | Fragmented,
		IDLo:        7,
		PacketCount: 3,
		Fragment:    &FragmentHeader{MessageID: 99, FragmentIndex: 1, FragmentCount: 3},
		Payload:     []byte("chunk"),
	}
	buf := f.Encode()

	got, err := Decode(buf)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got.Fragment == nil || got.Fragment.MessageID != 99 || got.Fragment.FragmentIndex != 1 || got.Fragment.FragmentCount != 3 {
		t.Fatalf("fragment header mismatch: %+v", got.Fragment)
	}
}

func TestDecodeRejectsTruncatedHeader(t *testing.T) {
	if _, err := Decode([]byte{0x01, 0x00}); err == nil {
		t.Fatalf("expected an error decoding a truncated header")
	}
}

func TestDecodeRejectsTruncatedFragmentHeader(t *testing.T) {
	buf := []byte{byte(Fragmented), 0, 1, 0, 1, 0, 0, 0}
	if _, err := Decode(buf); err == nil {
		t.Fatalf("expected an error decoding a truncated fragmentation header")
	}
}
