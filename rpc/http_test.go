package rpc

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/simplege/gamenet/netsync"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticSource struct {
	status *netsync.Status
}

func (s *staticSource) Status() *netsync.Status {
	return s.status
}

func TestHostRPC(t *testing.T) {
	require := require.New(t)

	source := &staticSource{status: &netsync.Status{
		Id:        "2b9f1c3e-0000-4000-8000-000000000001",
		Game:      "squareShooter",
		Name:      "alpha",
		State:     "running",
		StartedAt: time.Now().Add(-time.Minute - 100*time.Millisecond),
		TcpAddr:   "127.0.0.1:7239",
		Sequence:  42,
		Entities:  3,
		Peers: []netsync.PeerStatus{
			{
				Id:       "peer-1",
				Addr:     "127.0.0.1:50001",
				Control:  "127.0.0.1:50002",
				JoinedAt: time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC),
				LastSeen: time.Date(2026, 10, 1, 12, 5, 0, 0, time.UTC),
				Entities: 2,
			},
		},
	}}
	server := httptest.NewServer(NewHandler(source))
	defer server.Close()

	info, err := GetInfo(server.URL)
	require.Nil(err)
	require.Equal("squareShooter", info.Game)
	require.Equal("running", info.State)
	require.Equal(uint64(42), info.Sequence)
	require.Equal(1, info.Peers)
	require.Equal("127.0.0.1:7239", info.TcpAddr)
	require.Equal("1m0s", info.Uptime)

	peers, err := ListPeers(server.URL)
	require.Nil(err)
	require.Len(peers, 1)
	require.Equal(source.status.Peers[0], peers[0])

	_, err = GetMetric(server.URL)
	require.NotNil(err)
	require.Contains(err.Error(), "metric disabled")

	sent := netsync.NewMetricPool(true)
	sent.MessageTypeSnapshot = 7
	source.status.Metric = map[string]*netsync.MetricPool{"sent": sent}
	metric, err := GetMetric(server.URL)
	require.Nil(err)
	require.Len(metric, 1)
	require.Equal(uint32(7), metric["sent"].MessageTypeSnapshot)
	require.Equal(uint32(0), metric["sent"].MessageTypeState)

	var out any
	err = callHost(server.URL, "listsnapshots", nil, &out)
	require.NotNil(err)
	require.Contains(err.Error(), "invalid method")

	source.status.Peers = nil
	peers, err = ListPeers(server.URL)
	require.Nil(err)
	require.Len(peers, 0)

	_, err = GetInfo(server.URL + "/unknown")
	require.NotNil(err)
}

func TestRouter(t *testing.T) {
	assert := assert.New(t)

	handler := NewHandler(&staticSource{status: &netsync.Status{}})

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest("POST", "/", strings.NewReader("{")))
	assert.Equal(http.StatusBadRequest, w.Code)

	w = httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest("GET", "/unknown", nil))
	assert.Equal(http.StatusNotFound, w.Code)

	w = httptest.NewRecorder()
	req := httptest.NewRequest("OPTIONS", "/", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	handler.ServeHTTP(w, req)
	assert.Equal(http.StatusOK, w.Code)
	assert.Equal("http://localhost:3000", w.Header().Get("Access-Control-Allow-Origin"))
}
