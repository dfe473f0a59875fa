package control

import (
	"encoding/base64"
	"errors"
	"testing"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMessageRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		m    *Message
	}{
		{"status", StatusMessage(Connected)},
		{"sync", SyncMessage([]interface{}{"42", 3.0, true, nil})},
		{"empty sync", SyncMessage(nil)},
		{"both", &Message{Status: Disconnecting, Sync: []interface{}{"x"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bs, err := Encode(tt.m)
			require.NoError(t, err)
			assert.NotContains(t, string(bs), "\n")

			m, err := Decode(bs)
			require.NoError(t, err)
			assert.Equal(t, tt.m, m)
		})
	}
}

func TestMessageWireFormat(t *testing.T) {
	bs, err := Encode(StatusMessage(Ready))
	require.NoError(t, err)

	js, err := base64.StdEncoding.DecodeString(string(bs))
	require.NoError(t, err)
	assert.JSONEq(t, `{"STATUS":"READY"}`, string(js))

	bs, err = Encode(SyncMessage([]interface{}{"42"}))
	require.NoError(t, err)
	js, err = base64.StdEncoding.DecodeString(string(bs))
	require.NoError(t, err)
	inner := base64.StdEncoding.EncodeToString([]byte(`["42"]`))
	assert.JSONEq(t, `{"SYNC":"`+inner+`"}`, string(js))
}

func TestSyncPacket(t *testing.T) {
	frame := make([]byte, 60)
	copy(frame, []byte{0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 1, 2, 3, 4, 5, 6, 0x08, 0x06})
	p := gopacket.NewPacket(frame, layers.LayerTypeEthernet, gopacket.Default)

	bs, err := Encode(SyncMessage([]interface{}{p, "after"}))
	require.NoError(t, err)

	m, err := Decode(bs)
	require.NoError(t, err)
	require.Len(t, m.Sync, 2)
	assert.Equal(t, base64.StdEncoding.EncodeToString(frame), m.Sync[0])
	assert.Equal(t, "after", m.Sync[1])
}

type handle struct {
	fd int
}

func TestSyncOpaque(t *testing.T) {
	for _, x := range []interface{}{handle{3}, &handle{4}, make(chan int)} {
		_, err := Encode(SyncMessage([]interface{}{x}))
		assert.Error(t, err, "%T", x)
	}

	var ove *OpaqueValueError
	_, err := Encode(SyncMessage([]interface{}{&handle{4}}))
	require.True(t, errors.As(err, &ove), "got %v", err)
	assert.Equal(t, "*control.handle", ove.Type)

	// Structs with exported fields are fine.
	_, err = Encode(SyncMessage([]interface{}{struct{ Port int }{80}}))
	assert.NoError(t, err)
}

func TestDecodeErrors(t *testing.T) {
	b64 := func(s string) string {
		return base64.StdEncoding.EncodeToString([]byte(s))
	}

	tests := []struct {
		name string
		raw  string
	}{
		{"not base64", "!!!"},
		{"not json", b64("STATUS")},
		{"empty object", b64(`{}`)},
		{"bad status", b64(`{"STATUS":"SLEEPY"}`)},
		{"bad sync base64", b64(`{"SYNC":"!!!"}`)},
		{"sync not array", b64(`{"SYNC":"` + b64(`{"a":1}`) + `"}`)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode([]byte(tt.raw))
			var de *DecodeError
			require.True(t, errors.As(err, &de), "got %v", err)
			assert.Equal(t, tt.raw, de.Raw)
		})
	}
}
