package transport

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecode(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
		want    Envelope
	}{
		{
			name:  "event",
			input: `{"type":"event","event":"ready"}`,
			want:  Envelope{Type: TypeEvent, Event: EventReady},
		},
		{
			name:  "reply with payload",
			input: `{"type":"reply","marker":7,"payload":"hi"}`,
			want:  Envelope{Type: TypeReply, Marker: 7, Payload: json.RawMessage(`"hi"`)},
		},
		{
			name:    "reply without marker",
			input:   `{"type":"reply","payload":"hi"}`,
			wantErr: true,
		},
		{
			name:    "event without name",
			input:   `{"type":"event"}`,
			wantErr: true,
		},
		{
			name:    "unknown type",
			input:   `{"type":"telemetry","event":"x"}`,
			wantErr: true,
		},
		{
			name:    "not json",
			input:   `<span>hi</span>`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env, err := Decode([]byte(tt.input))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want.Type, env.Type)
			assert.Equal(t, tt.want.Event, env.Event)
			assert.Equal(t, tt.want.Marker, env.Marker)
			if tt.want.Payload != nil {
				assert.JSONEq(t, string(tt.want.Payload), string(env.Payload))
			}
		})
	}
}

func TestMarshalPayload(t *testing.T) {
	raw, err := MarshalPayload(nil)
	require.NoError(t, err)
	assert.Nil(t, raw)

	raw, err = MarshalPayload("ls\n")
	require.NoError(t, err)
	assert.JSONEq(t, `"ls\n"`, string(raw))

	passthrough := json.RawMessage(`{"rows":24}`)
	raw, err = MarshalPayload(passthrough)
	require.NoError(t, err)
	assert.Equal(t, passthrough, raw)
}

func TestDecodeString(t *testing.T) {
	s, err := DecodeString(json.RawMessage(`"<span>hi</span>"`))
	require.NoError(t, err)
	assert.Equal(t, "<span>hi</span>", s)

	_, err = DecodeString(json.RawMessage(`3`))
	assert.Error(t, err)
}
