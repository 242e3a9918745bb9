package chat

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTimestamp_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  time.Time
		zero  bool
	}{
		{
			name:  "local date time with fraction",
			input: `"2025-03-01T10:15:30.123"`,
			want:  time.Date(2025, 3, 1, 10, 15, 30, 123000000, time.Local),
		},
		{
			name:  "local date time without fraction",
			input: `"2025-03-01T10:15:30"`,
			want:  time.Date(2025, 3, 1, 10, 15, 30, 0, time.Local),
		},
		{
			name:  "rfc3339",
			input: `"2025-03-01T10:15:30Z"`,
			want:  time.Date(2025, 3, 1, 10, 15, 30, 0, time.UTC),
		},
		{
			name:  "epoch millis",
			input: `1740824130000`,
			want:  time.UnixMilli(1740824130000),
		},
		{name: "null", input: `null`, zero: true},
		{name: "empty string", input: `""`, zero: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var ts Timestamp
			require.NoError(t, json.Unmarshal([]byte(tt.input), &ts))
			if tt.zero {
				assert.True(t, ts.IsZero())
				return
			}
			assert.True(t, tt.want.Equal(ts.Time), "got %v, want %v", ts.Time, tt.want)
		})
	}
}

func TestTimestamp_UnmarshalJSON_Invalid(t *testing.T) {
	var ts Timestamp
	err := json.Unmarshal([]byte(`"yesterday"`), &ts)
	assert.Error(t, err)
}

func TestMessage_DecodeWireFormat(t *testing.T) {
	body := `{"id":11,"roomId":1,"senderId":2002,"content":"hi","time":"2025-03-01T10:15:30"}`

	var msg Message
	require.NoError(t, json.Unmarshal([]byte(body), &msg))

	assert.Equal(t, MessageID(11), msg.ID)
	assert.Equal(t, RoomID(1), msg.RoomID)
	assert.Equal(t, UserID(2002), msg.SenderID)
	assert.Equal(t, "hi", msg.Content)
	assert.False(t, msg.Time.IsZero())
}

func TestRoom_Title(t *testing.T) {
	assert.Equal(t, "Peer 2002", Room{RoomID: 1, PeerID: 2002}.Title())
	assert.Equal(t, "Room #7", Room{RoomID: 7}.Title())
}

func TestDirectRoom_RoomHasEmptyPreview(t *testing.T) {
	created, err := ParseTimestamp("2025-03-01T10:15:30")
	require.NoError(t, err)

	d := DirectRoom{RoomID: 4, PeerID: 2002, CreatedAt: created}
	r := d.Room()

	assert.Equal(t, RoomID(4), r.RoomID)
	assert.Equal(t, UserID(2002), r.PeerID)
	assert.Empty(t, r.LastText)
	assert.True(t, r.LastTime.IsZero(), "no message yet, so no last-message time")
}

func TestNetworkError_Is(t *testing.T) {
	var err error = &NetworkError{Op: "list rooms", StatusCode: 500, Body: "boom"}

	assert.True(t, errors.Is(err, ErrNetwork))
	assert.False(t, errors.Is(err, ErrNotConnected))
	assert.Equal(t, "list rooms: unexpected status 500: boom", err.Error())
}

func TestReverse(t *testing.T) {
	in := []Message{{ID: 10}, {ID: 9}, {ID: 8}}
	out := Reverse(in)

	assert.Equal(t, []Message{{ID: 8}, {ID: 9}, {ID: 10}}, out)
	assert.Equal(t, MessageID(10), in[0].ID, "input must not be modified")
}

func TestParseIDs(t *testing.T) {
	u, err := ParseUserID(" 2002 ")
	require.NoError(t, err)
	assert.Equal(t, UserID(2002), u)

	r, err := ParseRoomID("7")
	require.NoError(t, err)
	assert.Equal(t, RoomID(7), r)

	for _, bad := range []string{"", "0", "-3", "abc", "1.5"} {
		_, err := ParseUserID(bad)
		assert.Error(t, err, bad)
		_, err = ParseRoomID(bad)
		assert.Error(t, err, bad)
	}
}
