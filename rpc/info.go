package rpc

import (
	"fmt"
	"time"

	"github.com/simplege/gamenet/netsync"
)

// Info is the getinfo summary of a host.
type Info struct {
	Id        string `json:"id"`
	Game      string `json:"game"`
	Name      string `json:"name"`
	Version   string `json:"version"`
	State     string `json:"state"`
	Uptime    string `json:"uptime,omitempty"`
	TcpAddr   string `json:"tcp"`
	UdpAddr   string `json:"udp"`
	Discovery string `json:"discovery"`
	Sequence  uint64 `json:"sequence"`
	Entities  int    `json:"entities"`
	Peers     int    `json:"peers"`
	Pending   int    `json:"pending"`
	Dropped   uint64 `json:"dropped"`
}

func getInfo(source StatusSource) *Info {
	s := source.Status()
	info := &Info{
		Id:        s.Id,
		Game:      s.Game,
		Name:      s.Name,
		Version:   s.Version,
		State:     s.State,
		TcpAddr:   s.TcpAddr,
		UdpAddr:   s.UdpAddr,
		Discovery: s.Discovery,
		Sequence:  s.Sequence,
		Entities:  s.Entities,
		Peers:     len(s.Peers),
		Pending:   s.Pending,
		Dropped:   s.Dropped,
	}
	if !s.StartedAt.IsZero() {
		info.Uptime = time.Since(s.StartedAt).Round(time.Second).String()
	}
	return info
}

func listPeers(source StatusSource) []netsync.PeerStatus {
	peers := source.Status().Peers
	if peers == nil {
		return make([]netsync.PeerStatus, 0)
	}
	return peers
}

func getMetric(source StatusSource) (map[string]*netsync.MetricPool, error) {
	s := source.Status()
	if s.Metric == nil {
		return nil, fmt.Errorf("metric disabled")
	}
	return s.Metric, nil
}
