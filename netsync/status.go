package netsync

import (
	"time"

	"github.com/simplege/gamenet/config"
)

type PeerStatus struct {
	Id       string    `json:"id"`
	Addr     string    `json:"addr"`
	Control  string    `json:"control"`
	JoinedAt time.Time `json:"joined_at"`
	LastSeen time.Time `json:"last_seen"`
	Entities int       `json:"entities"`
}

// Status is a read only copy of the host published at the end of each tick.
type Status struct {
	Id        string                 `json:"id"`
	Game      string                 `json:"game"`
	Name      string                 `json:"name"`
	Version   string                 `json:"version"`
	State     string                 `json:"state"`
	StartedAt time.Time              `json:"started_at"`
	TcpAddr   string                 `json:"tcp"`
	UdpAddr   string                 `json:"udp"`
	Discovery string                 `json:"discovery"`
	Sequence  uint64                 `json:"sequence"`
	Entities  int                    `json:"entities"`
	Pending   int                    `json:"pending"`
	Dropped   uint64                 `json:"dropped"`
	Peers     []PeerStatus           `json:"peers"`
	Metric    map[string]*MetricPool `json:"metric,omitempty"`
}

func (h *Host) publish() {
	s := &Status{
		Id:        h.Id.String(),
		Game:      h.custom.Game.Id,
		Name:      h.custom.Host.Name,
		Version:   config.BuildVersion,
		State:     h.state.String(),
		StartedAt: h.startedAt,
		Sequence:  h.sequence,
		Entities:  h.entities,
		Pending:   len(h.pending),
		Peers:     make([]PeerStatus, 0, h.table.Len()),
	}
	if addr := h.TcpAddr(); addr != nil {
		s.TcpAddr = addr.String()
	}
	if addr := h.UdpAddr(); addr != nil {
		s.UdpAddr = addr.String()
		s.Dropped = h.socket.Dropped()
	}
	if h.responder != nil {
		s.Discovery = h.responder.Addr().String()
	}
	for _, r := range h.table.Records() {
		p := PeerStatus{
			Id:       r.Id.String(),
			JoinedAt: r.JoinedAt,
			LastSeen: r.LastSeen,
			Entities: len(r.States()),
		}
		if r.Addr != nil {
			p.Addr = r.Addr.String()
		}
		if r.Control != nil {
			p.Control = r.Control.RemoteAddr().String()
		}
		s.Peers = append(s.Peers, p)
	}
	if h.custom.RPC.Metric {
		s.Metric = h.Metric()
	}
	h.status.Store(s)
}

// Status is safe to call from any goroutine.
func (h *Host) Status() *Status {
	s, _ := h.status.Load().(*Status)
	if s == nil {
		return &Status{
			Id:      h.Id.String(),
			Game:    h.custom.Game.Id,
			Name:    h.custom.Host.Name,
			Version: config.BuildVersion,
			State:   HostIdle.String(),
			Peers:   make([]PeerStatus, 0),
		}
	}
	return s
}
