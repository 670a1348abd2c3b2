package protocol

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_MissingType(t *testing.T) {
	_, err := Parse([]byte(`{"id":"abc"}`))
	assert.Error(t, err)
}

func TestParse_NonObjectRoot(t *testing.T) {
	_, err := Parse([]byte(`[1,2,3]`))
	assert.Error(t, err)
}

func TestParse_OversizedFrame(t *testing.T) {
	huge := `{"type":"hello","id":"` + strings.Repeat("x", MaxMessageSize) + `"}`
	_, err := Parse([]byte(huge))
	assert.Error(t, err)
}

func TestParse_RoundTrip(t *testing.T) {
	msg := Hello("flame-sidecar", "flame", nil, "")
	raw, err := msg.Serialize()
	require.NoError(t, err)

	parsed, err := Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, MsgHello, parsed.Type())
	assert.True(t, parsed.IsRequest())
}

func TestMessage_Accessors(t *testing.T) {
	msg := EntityList("shot", "proj-1")
	assert.Equal(t, MsgEntityList, msg.Type())
	name, ok := msg.String("entity_type")
	require.True(t, ok)
	assert.Equal(t, "shot", name)
}

func TestOK_OmitsNilResult(t *testing.T) {
	msg := OK("req-1", nil)
	_, hasResult := msg["result"]
	assert.False(t, hasResult)
}

func TestError_EchoesNullableID(t *testing.T) {
	msg := Error("", ErrNotFound, "shot not found", nil)
	assert.Nil(t, msg["id"])
	assert.Equal(t, string(ErrNotFound), msg["code"])
}

func TestEvent_CarriesMonotonicID(t *testing.T) {
	msg := Event("role.registered", map[string]any{"name": "r1"}, "", "", 42)
	assert.Equal(t, int64(42), msg["event_id"])
	assert.Nil(t, msg["project_id"])
}

func TestBye_HasNoID(t *testing.T) {
	msg := Bye("")
	assert.False(t, msg.IsRequest())
	assert.Equal(t, "client_shutdown", msg["reason"])
}
