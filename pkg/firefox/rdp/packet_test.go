package rdp_test

import (
	"bufio"
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entrhq/webext/pkg/firefox/rdp"
)

func TestWritePacket(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, rdp.WritePacket(&buf, rdp.Packet{"to": "root", "type": "getRoot"}))
	assert.Equal(t, `30:{"to":"root","type":"getRoot"}`, buf.String())
}

func TestReadPacket(t *testing.T) {
	input := `30:{"to":"root","type":"getRoot"}15:{"from":"root"}`
	r := bufio.NewReader(strings.NewReader(input))

	first, err := rdp.ReadPacket(r)
	require.NoError(t, err)
	assert.Equal(t, "getRoot", first.Type())

	second, err := rdp.ReadPacket(r)
	require.NoError(t, err)
	assert.Equal(t, "root", second.From())
	assert.Empty(t, second.Type())
}

func TestReadPacket_Multibyte(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, rdp.WritePacket(&buf, rdp.Packet{"from": "root", "message": "héllo ✓"}))

	p, err := rdp.ReadPacket(bufio.NewReader(&buf))
	require.NoError(t, err)
	assert.Equal(t, "héllo ✓", p.String("message"))
}

func TestReadPacket_Errors(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		protocol bool
	}{
		{name: "bulk packet", input: "bulk actor type 10:0123456789", protocol: true},
		{name: "bad length", input: "abc:{}", protocol: true},
		{name: "negative length", input: "-1:{}", protocol: true},
		{name: "too large", input: "999999999999:{}", protocol: true},
		{name: "not json", input: "3:abc", protocol: true},
		{name: "null body", input: "4:null", protocol: true},
		{name: "truncated body", input: "10:{}"},
		{name: "no header", input: "12"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := rdp.ReadPacket(bufio.NewReader(strings.NewReader(tt.input)))
			require.Error(t, err)
			if tt.protocol {
				assert.ErrorIs(t, err, rdp.ErrProtocol)
			}
		})
	}
}

func TestPacket_RemoteError(t *testing.T) {
	assert.Nil(t, rdp.Packet{"from": "root"}.RemoteError())

	remote := rdp.Packet{"from": "addons", "error": "installFailed", "message": "bad manifest"}.RemoteError()
	require.NotNil(t, remote)
	assert.Equal(t, "addons", remote.Actor)
	assert.Equal(t, "installFailed: bad manifest", remote.Error())

	bare := rdp.Packet{"from": "addons", "error": "noSuchActor"}.RemoteError()
	assert.Equal(t, "noSuchActor", bare.Error())
}

func TestPacket_Object(t *testing.T) {
	p := rdp.Packet{"addon": map[string]interface{}{"id": "a@example.com"}, "flag": true}

	addon, ok := p.Object("addon")
	require.True(t, ok)
	assert.Equal(t, "a@example.com", addon.String("id"))

	_, ok = p.Object("flag")
	assert.False(t, ok)
	assert.Empty(t, p.String("flag"))
}
