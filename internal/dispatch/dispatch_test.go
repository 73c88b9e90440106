package dispatch

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/driver-rides/internal/logging"
	"github.com/example/driver-rides/internal/models"
)

func TestNewFillsIDAndTime(t *testing.T) {
	a := New(models.NotifyRideAccepted, "1", "accepted")
	b := New(models.NotifyRideAccepted, "1", "accepted")
	assert.NotEmpty(t, a.ID)
	assert.NotEqual(t, a.ID, b.ID)
	assert.False(t, a.At.IsZero())
	assert.Equal(t, "1", a.RideID)
}

func TestFanoutDeliversToEverySink(t *testing.T) {
	a, b := &Recorder{}, &Recorder{}
	f := Fanout{a, nil, b, Nop{}}
	f.Notify(context.Background(), New(models.NotifyRideDeclined, "2", "declined"))
	f.Notify(context.Background(), New(models.NotifyRideCompleted, "3", "done"))

	assert.Equal(t, []models.NotificationKind{models.NotifyRideDeclined, models.NotifyRideCompleted}, a.Kinds())
	assert.Len(t, b.Drain(), 2)
	assert.Empty(t, b.Drain())
}

func TestWebhookNotifierPostsJSON(t *testing.T) {
	got := make(chan models.Notification, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		var body struct {
			Notification models.Notification `json:"notification"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		got <- body.Notification
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	w := NewWebhookNotifier(srv.URL, logging.Discard())
	w.Notify(context.Background(), New(models.NotifyNoRidesAvailable, "", "nothing nearby"))

	select {
	case n := <-got:
		assert.Equal(t, models.NotifyNoRidesAvailable, n.Kind)
	case <-time.After(2 * time.Second):
		t.Fatal("webhook not called")
	}
}

func TestWebhookNotifierSwallowsFailures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()
	w := NewWebhookNotifier(srv.URL, logging.Discard())
	assert.Error(t, w.post(context.Background(), New(models.NotifyGeocodeError, "", "x")))
	w.Notify(context.Background(), New(models.NotifyGeocodeError, "", "x"))
}

func TestWSRegistryBroadcast(t *testing.T) {
	reg := NewWSRegistry(logging.Discard())
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		reg.Add(r.URL.Query().Get("id"), conn)
	}))
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	c1, _, err := websocket.DefaultDialer.Dial(wsURL+"?id=a", nil)
	require.NoError(t, err)
	defer c1.Close()
	c2, _, err := websocket.DefaultDialer.Dial(wsURL+"?id=b", nil)
	require.NoError(t, err)
	defer c2.Close()

	require.Eventually(t, func() bool { return reg.Len() == 2 }, 2*time.Second, 10*time.Millisecond)

	reg.Notify(context.Background(), New(models.NotifyRideStarted, "1", "picked up"))
	for _, c := range []*websocket.Conn{c1, c2} {
		_ = c.SetReadDeadline(time.Now().Add(2 * time.Second))
		var n models.Notification
		require.NoError(t, c.ReadJSON(&n))
		assert.Equal(t, models.NotifyRideStarted, n.Kind)
		assert.Equal(t, "1", n.RideID)
	}

	assert.ErrorIs(t, reg.Send("missing", New(models.NotifyRideStarted, "1", "")), ErrNoSession)
}

func TestWSRegistryDropsClientThatStopsReading(t *testing.T) {
	reg := NewWSRegistry(logging.Discard())
	reg.WriteWait = 100 * time.Millisecond
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		reg.Add("stalled", conn)
	}))
	defer srv.Close()

	// The client holds the connection open and never reads from it.
	c, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	defer c.Close()
	require.Eventually(t, func() bool { return reg.Len() == 1 }, 2*time.Second, 10*time.Millisecond)

	big := strings.Repeat("x", 1<<20)
	start := time.Now()
	for i := 0; i < 500 && reg.Len() > 0; i++ {
		sent := time.Now()
		reg.Notify(context.Background(), New(models.NotifyRideAccepted, "1", big))
		require.Less(t, time.Since(sent), 2*time.Second, "a single notify must not block on a stalled client")
	}
	assert.Equal(t, 0, reg.Len())
	assert.Less(t, time.Since(start), 20*time.Second)
}
