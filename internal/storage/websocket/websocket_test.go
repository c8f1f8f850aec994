package websocket

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dota-timeslice/replay-sampler/internal/model/core"
	"github.com/dota-timeslice/replay-sampler/pkg/streaming"
	json "github.com/goccy/go-json"
	ws "github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testServer creates an httptest server that upgrades to WebSocket,
// records received messages, and sends acks for start_match/end_match.
func testServer(t *testing.T) (*httptest.Server, *messageLog) {
	t.Helper()
	ml := &messageLog{}

	upgrader := ws.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ml.setSecret(r.URL.Query().Get("secret"))
		c, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Logf("upgrade error: %v", err)
			return
		}
		defer c.Close()

		for {
			_, msg, err := c.ReadMessage()
			if err != nil {
				return
			}

			var env streaming.Envelope
			if err := json.Unmarshal(msg, &env); err != nil {
				continue
			}
			ml.add(env)

			if env.Type == streaming.TypeStartMatch || env.Type == streaming.TypeEndMatch {
				ack := streaming.AckMessage{Type: streaming.TypeAck, For: env.Type}
				data, _ := json.Marshal(ack)
				if err := c.WriteMessage(ws.TextMessage, data); err != nil {
					return
				}
			}
		}
	}))

	return srv, ml
}

type messageLog struct {
	mu       sync.Mutex
	secret   string
	messages []streaming.Envelope
}

func (m *messageLog) add(env streaming.Envelope) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append(m.messages, env)
}

func (m *messageLog) setSecret(s string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.secret = s
}

func (m *messageLog) getSecret() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.secret
}

func (m *messageLog) all() []streaming.Envelope {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make([]streaming.Envelope, len(m.messages))
	copy(cp, m.messages)
	return cp
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func sample(matchTime int) *core.Snapshot {
	return &core.Snapshot{
		MatchTime: matchTime,
		Radiant:   core.NewTeam(core.SideRadiant),
		Dire:      core.NewTeam(core.SideDire),
	}
}

func TestStartAndEndMatch(t *testing.T) {
	srv, ml := testServer(t)
	defer srv.Close()

	b := New(Config{URL: wsURL(srv), Secret: "test"}, nil)
	require.NoError(t, b.Init())
	defer b.Close()

	require.NoError(t, b.StartMatch(&core.Match{Replay: "7400000001.dem", Interval: 30}))
	require.NoError(t, b.EndMatch())

	msgs := ml.all()
	require.Len(t, msgs, 2)
	assert.Equal(t, streaming.TypeStartMatch, msgs[0].Type)
	assert.Equal(t, streaming.TypeEndMatch, msgs[1].Type)

	var start streaming.StartMatchPayload
	require.NoError(t, json.Unmarshal(msgs[0].Payload, &start))
	assert.Equal(t, "7400000001.dem", start.Match.Replay)
	assert.Equal(t, "test", ml.getSecret())
}

func TestSnapshotsArriveInOrder(t *testing.T) {
	srv, ml := testServer(t)
	defer srv.Close()

	b := New(Config{URL: wsURL(srv), Secret: "s"}, nil)
	require.NoError(t, b.Init())
	defer b.Close()

	require.NoError(t, b.StartMatch(&core.Match{Replay: "r.dem", Interval: 30}))
	for _, mt := range []int{30, 60, 90} {
		require.NoError(t, b.RecordSnapshot(sample(mt)))
	}
	require.NoError(t, b.EndMatch())

	msgs := ml.all()
	require.Len(t, msgs, 5)

	var times []int
	for _, m := range msgs[1:4] {
		require.Equal(t, streaming.TypeSnapshot, m.Type)
		var p streaming.SnapshotPayload
		require.NoError(t, json.Unmarshal(m.Payload, &p))
		times = append(times, p.MatchTime)
		assert.True(t, strings.HasPrefix(string(p.Teams), `{"dire":{`), string(p.Teams))
	}
	assert.Equal(t, []int{30, 60, 90}, times)

	var end streaming.EndMatchPayload
	require.NoError(t, json.Unmarshal(msgs[4].Payload, &end))
	assert.Equal(t, 3, end.Samples)
	assert.Zero(t, b.Dropped())
}

func TestEndMatch_AckTimeoutWhenServerSilent(t *testing.T) {
	upgrader := ws.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer c.Close()
		for {
			if _, _, err := c.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer srv.Close()

	b := New(Config{URL: wsURL(srv)}, nil)
	require.NoError(t, b.Init())

	done := make(chan error, 1)
	go func() { done <- b.link.request([]byte(`{"type":"end_match"}`), streaming.TypeEndMatch, 50*time.Millisecond) }()
	select {
	case err := <-done:
		require.Error(t, err)
		assert.Contains(t, err.Error(), "timeout waiting for ack")
	case <-time.After(2 * time.Second):
		t.Fatal("request did not time out")
	}
	require.NoError(t, b.Close())
}

func TestReconnect_ReplaysStartMatch(t *testing.T) {
	var (
		mu    sync.Mutex
		conns [][]string
	)
	upgrader := ws.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer c.Close()

		mu.Lock()
		conns = append(conns, nil)
		idx := len(conns) - 1
		mu.Unlock()

		for {
			_, msg, err := c.ReadMessage()
			if err != nil {
				return
			}
			var env streaming.Envelope
			if err := json.Unmarshal(msg, &env); err != nil {
				continue
			}
			mu.Lock()
			conns[idx] = append(conns[idx], env.Type)
			mu.Unlock()

			switch {
			case env.Type == streaming.TypeSnapshot && idx == 0:
				return // drop the first connection after one sample
			case env.Type == streaming.TypeStartMatch || env.Type == streaming.TypeEndMatch:
				data, _ := json.Marshal(streaming.AckMessage{Type: streaming.TypeAck, For: env.Type})
				if err := c.WriteMessage(ws.TextMessage, data); err != nil {
					return
				}
			}
		}
	}))
	defer srv.Close()

	b := New(Config{URL: wsURL(srv)}, nil)
	require.NoError(t, b.Init())
	defer b.Close()

	require.NoError(t, b.StartMatch(&core.Match{Replay: "r.dem", Interval: 30}))
	require.NoError(t, b.RecordSnapshot(sample(30)))

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(conns) == 2 && len(conns[1]) >= 1
	}, 5*time.Second, 10*time.Millisecond)

	require.NoError(t, b.RecordSnapshot(sample(60)))
	require.NoError(t, b.EndMatch())

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{streaming.TypeStartMatch, streaming.TypeSnapshot}, conns[0])
	assert.Equal(t, []string{streaming.TypeStartMatch, streaming.TypeSnapshot, streaming.TypeEndMatch}, conns[1])
}

func TestBackoff(t *testing.T) {
	assert.Equal(t, time.Second, backoff(1))
	assert.Equal(t, 4*time.Second, backoff(3))
	assert.Equal(t, maxBackoff, backoff(6))
	assert.Equal(t, maxBackoff, backoff(100))
}

func TestInit_DialFailure(t *testing.T) {
	b := New(Config{URL: "ws://127.0.0.1:1/live"}, nil)
	err := b.Init()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "websocket dial failed")
	assert.NoError(t, b.Close())
}

func TestEnvelopeSerialization(t *testing.T) {
	data, err := marshalEnvelope(streaming.TypeEndMatch, streaming.EndMatchPayload{Samples: 42})
	require.NoError(t, err)

	var decoded streaming.Envelope
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, streaming.TypeEndMatch, decoded.Type)

	var p streaming.EndMatchPayload
	require.NoError(t, json.Unmarshal(decoded.Payload, &p))
	assert.Equal(t, 42, p.Samples)
}
