package transfer

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestState_Terminal(t *testing.T) {
	assert.False(t, Idle.Terminal())
	assert.False(t, InProgress.Terminal())
	assert.True(t, Cancelled.Terminal())
	assert.True(t, Failed.Terminal())
	assert.True(t, Succeeded.Terminal())
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "in_progress", InProgress.String())
	assert.Equal(t, "state(42)", State(42).String())
}

func TestState_TextRoundTrip(t *testing.T) {
	var s State
	require.NoError(t, s.UnmarshalText([]byte("cancelled")))
	assert.Equal(t, Cancelled, s)

	assert.Error(t, s.UnmarshalText([]byte("paused")))
}

func TestSnapshot_JSON(t *testing.T) {
	b, err := json.Marshal(Snapshot{URL: "http://example.test/", State: Failed, BytesRead: 3, Error: "boom"})
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal(b, &got))
	assert.Equal(t, "failed", got["state"])
	assert.Equal(t, "boom", got["error"])
	assert.EqualValues(t, 3, got["bytes_read"])
}

func TestSnapshot_Percent(t *testing.T) {
	tests := []struct {
		name        string
		read, total int64
		want        float64
	}{
		{"unknown total", 10, 0, -1},
		{"half", 50, 100, 50},
		{"complete", 100, 100, 100},
		{"overrun is capped", 120, 100, 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := Snapshot{BytesRead: tt.read, BytesTotal: tt.total}
			assert.InDelta(t, tt.want, s.Percent(), 0.001)
		})
	}
}
