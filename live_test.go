package main

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shift_handover/internal/shift"
)

type liveView struct {
	stateView
	Summary string `json:"summary"`
}

func dialLive(t *testing.T, s *server) *websocket.Conn {
	t.Helper()
	srv := httptest.NewServer(s.routes())
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/live"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readUntil(t *testing.T, conn *websocket.Conn, cond func(liveView) bool) liveView {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	for {
		var v liveView
		require.NoError(t, conn.ReadJSON(&v))
		if cond(v) {
			return v
		}
	}
}

func TestLive_PushesChanges(t *testing.T) {
	s, st := newTestServer(t, nil)
	conn := dialLive(t, s)

	v := readUntil(t, conn, func(v liveView) bool { return v.Connection == "connected" })
	assert.Equal(t, eveningKey, v.Key)
	assert.Empty(t, v.Faults)
	assert.Contains(t, v.Summary, "אין תקלות פתוחות")

	_, err := st.AddFault(context.Background(), eveningKey, shift.Fault{
		SiteNumber: "7",
		SiteName:   "עכו",
		Reason:     "סיב קטוע",
		Status:     shift.StatusOpen,
	})
	require.NoError(t, err)

	v = readUntil(t, conn, func(v liveView) bool { return len(v.Faults) == 1 })
	assert.Equal(t, "7", v.Faults[0].SiteNumber)
	assert.Contains(t, v.Summary, "1. אתר 7 (עכו) | סיבה: סיב קטוע")
}

func TestLive_Switch(t *testing.T) {
	s, st := newTestServer(t, nil)
	_, err := st.AddFault(context.Background(), eveningKey, shift.Fault{SiteNumber: "7", SiteName: "עכו", Status: shift.StatusOpen})
	require.NoError(t, err)

	conn := dialLive(t, s)
	readUntil(t, conn, func(v liveView) bool { return v.Connection == "connected" && len(v.Faults) == 1 })

	// ignored
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("not json")))
	require.NoError(t, conn.WriteJSON(LiveMessage{Action: "switch", Date: "6.10.2026", Type: "lunch"}))

	require.NoError(t, conn.WriteJSON(LiveMessage{Action: "switch", Date: "6.10.2026", Type: "night"}))
	v := readUntil(t, conn, func(v liveView) bool {
		return v.Key == "6-10-2026_לילה" && v.Connection == "connected"
	})
	assert.Empty(t, v.Faults)
	assert.Equal(t, shift.Night, v.Shift.Type)
}
