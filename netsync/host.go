package netsync

import (
	"fmt"
	"net"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/simplege/gamenet/common"
	"github.com/simplege/gamenet/config"
	"github.com/simplege/gamenet/discovery"
	"github.com/simplege/gamenet/logger"
	"github.com/simplege/gamenet/network"
	"github.com/simplege/gamenet/session"
)

type HostState int

const (
	HostIdle HostState = iota
	HostListening
	HostRunning
	HostShuttingDown
)

func (s HostState) String() string {
	switch s {
	case HostIdle:
		return "idle"
	case HostListening:
		return "listening"
	case HostRunning:
		return "running"
	case HostShuttingDown:
		return "shutting-down"
	}
	return fmt.Sprintf("unknown(%d)", int(s))
}

type pendingChannel struct {
	channel *network.ControlChannel
	since   time.Time
}

// Host is the authoritative endpoint of a session. Everything except Status
// must be called from the goroutine driving Tick.
type Host struct {
	custom *config.Custom
	codec  common.Codec
	scene  Scene
	log    *logger.Logger
	now    func() time.Time

	Id        common.PeerId
	state     HostState
	startedAt time.Time

	listener  *network.Listener
	socket    *network.DatagramSocket
	responder *discovery.Responder
	table     *session.Table
	pending   []*pendingChannel

	sequences   map[common.EntityId]uint64
	sequence    uint64
	entities    int
	applied     []common.EntityState
	interrupted bool

	sentMetric     *MetricPool
	receivedMetric *MetricPool
	status         atomic.Value
}

func NewHost(custom *config.Custom, codec common.Codec, scene Scene, log *logger.Logger) *Host {
	return &Host{
		custom:         custom,
		codec:          codec,
		scene:          scene,
		log:            log.Tagged("HOST"),
		now:            time.Now,
		Id:             common.NewPeerId(),
		table:          session.NewTable(),
		sequences:      make(map[common.EntityId]uint64),
		sentMetric:     NewMetricPool(custom.RPC.Metric),
		receivedMetric: NewMetricPool(custom.RPC.Metric),
	}
}

func (h *Host) Listen() error {
	if h.state != HostIdle {
		return fmt.Errorf("host already %s", h.state)
	}

	listener, err := network.Listen(h.address(h.custom.Host.TcpPort), h.log)
	if err != nil {
		return err
	}
	socket, err := network.ListenDatagram("udp", h.address(h.custom.Host.UdpPort))
	if err != nil {
		listener.Close()
		return err
	}
	h.listener, h.socket = listener, socket

	if !h.custom.Discovery.Hidden {
		responder := discovery.NewResponder(h.custom, h.codec, h.log)
		err = responder.Listen(h.announcement())
		if err != nil {
			h.log.Errorf("discovery responder %s, hosting hidden\n", err.Error())
		} else {
			h.responder = responder
		}
	}

	h.state = HostListening
	h.startedAt = h.now()
	h.publish()
	h.log.Printf("%s hosting %s on tcp %s udp %s\n", h.Id.Short(), h.custom.Game.Id,
		listener.Addr().String(), socket.LocalAddr().String())
	return nil
}

func (h *Host) address(port int) string {
	return net.JoinHostPort(h.custom.Host.Listen, strconv.Itoa(port))
}

func (h *Host) announcement() *common.DiscoveryAnnouncement {
	metadata := make(map[string]string)
	for k, v := range h.custom.Discovery.Metadata {
		metadata[k] = v
	}
	if metadata["host"] == "" {
		metadata["host"] = h.custom.Host.Name
	}
	return &common.DiscoveryAnnouncement{
		GameId:   h.custom.Game.Id,
		Name:     h.custom.Host.Name,
		TcpPort:  h.listener.Addr().Port,
		UdpPort:  h.socket.LocalAddr().Port,
		Metadata: metadata,
	}
}

// Tick runs one synchronization step. A non nil error means the host went
// down, the error is the cause and every later call returns ErrShutdown.
func (h *Host) Tick() error {
	switch h.state {
	case HostIdle:
		return fmt.Errorf("host not listening")
	case HostShuttingDown:
		return common.ErrShutdown
	case HostListening:
		h.state = HostRunning
	}

	now := h.now()
	err := h.admit(now)
	if err != nil {
		return h.interrupt(err)
	}
	err = h.receive(now)
	if err != nil {
		return h.interrupt(err)
	}
	h.prune(now)
	local := h.stampLocal()
	err = h.broadcast(local)
	if err != nil {
		return h.interrupt(err)
	}
	if len(h.applied) > 0 {
		applied := h.applied
		h.applied = nil
		h.scene.OnRemoteState(applied)
	}
	h.publish()
	h.answer(now)
	return nil
}

func (h *Host) admit(now time.Time) error {
	for {
		cc, err := h.listener.Poll()
		if err != nil {
			return err
		}
		if cc == nil {
			break
		}
		h.log.Verbosef("control connection from %s\n", cc.RemoteAddr().String())
		h.pending = append(h.pending, &pendingChannel{channel: cc, since: now})
	}

	timeout := h.custom.HandshakeTimeout()
	pending := h.pending[:0]
	for _, p := range h.pending {
		done, err := h.handshake(p.channel, now)
		if err != nil {
			h.log.Verbosef("handshake with %s failed %s\n", p.channel.RemoteAddr().String(), err.Error())
			p.channel.Close()
			continue
		}
		if done {
			continue
		}
		if now.Sub(p.since) > timeout {
			h.log.Verbosef("handshake with %s timeout\n", p.channel.RemoteAddr().String())
			p.channel.Close()
			continue
		}
		pending = append(pending, p)
	}
	for i := len(pending); i < len(h.pending); i++ {
		h.pending[i] = nil
	}
	h.pending = pending
	return nil
}

func (h *Host) handshake(cc *network.ControlChannel, now time.Time) (bool, error) {
	data, err := cc.Poll()
	if err != nil || data == nil {
		return false, err
	}
	h.receivedMetric.handle(MessageTypeHandshake)

	var req common.HandshakeRequest
	err = h.codec.Decode(data, &req)
	if err != nil {
		h.receivedMetric.handle(MessageTypeInvalid)
		return false, err
	}
	if req.GameId != h.custom.Game.Id {
		return false, fmt.Errorf("game %s mismatch %s", req.GameId, h.custom.Game.Id)
	}

	id := common.NewPeerId()
	for id == h.Id || h.table.Retired(id) || h.table.Get(id) != nil {
		id = common.NewPeerId()
	}
	resp, err := h.codec.Encode(&common.HandshakeResponse{
		PeerId:  id,
		UdpPort: h.socket.LocalAddr().Port,
	})
	if err != nil {
		return false, err
	}
	err = cc.Send(resp)
	if err != nil {
		return false, err
	}
	h.sentMetric.handle(MessageTypeHandshake)

	_, err = h.table.Admit(id, cc, now)
	if err != nil {
		return false, err
	}
	h.log.Printf("peer %s joined from %s\n", id.Short(), cc.RemoteAddr().String())
	if observer, ok := h.scene.(PeerObserver); ok {
		observer.OnPeerJoined(id)
	}
	return true, nil
}

// receive drains at most one inbox worth of datagrams, so a flood can not
// hold the tick forever.
func (h *Host) receive(now time.Time) error {
	for i := 0; i < config.QueueSize; i++ {
		d, err := h.socket.Poll()
		if err != nil {
			return err
		}
		if d == nil {
			return nil
		}

		var msg common.StateDatagram
		err = h.codec.Decode(d.Data, &msg)
		if err != nil {
			h.receivedMetric.handle(MessageTypeInvalid)
			h.log.Debugf("state datagram from %s %s\n", d.Addr.String(), err.Error())
			continue
		}
		r := h.table.Touch(msg.Sender, d.Addr, now)
		if r == nil {
			h.receivedMetric.handle(MessageTypeInvalid)
			h.log.Debugf("state datagram from unknown peer %s at %s\n", msg.Sender, d.Addr.String())
			continue
		}
		h.receivedMetric.handle(MessageTypeState)

		for _, es := range msg.States {
			if r.Apply(es) {
				h.applied = append(h.applied, es)
			} else {
				h.receivedMetric.handle(MessageTypeStale)
			}
		}
	}
	return nil
}

func (h *Host) prune(now time.Time) {
	observer, _ := h.scene.(PeerObserver)
	for _, r := range h.table.Prune(now, h.custom.HostLivenessTimeout()) {
		h.log.Printf("peer %s left, silent since %s\n", r.Id.Short(), r.LastSeen.Format(time.RFC3339))
		if r.Control != nil {
			r.Control.Close()
		}
		if observer != nil {
			observer.OnPeerLeft(r.Id, common.ErrLivenessTimeout)
		}
	}
}

func (h *Host) stampLocal() []common.EntityState {
	local := h.scene.LocalState()
	states := make([]common.EntityState, 0, len(local))
	for _, es := range local {
		h.sequences[es.Entity]++
		es.Owner = h.Id
		es.Sequence = h.sequences[es.Entity]
		states = append(states, es)
	}
	return states
}

func (h *Host) broadcast(local []common.EntityState) error {
	h.sequence++
	snap := common.WorldSnapshot{
		Sequence: h.sequence,
		States:   append(local, h.table.States()...),
	}
	h.entities = len(snap.States)

	data, err := h.codec.Encode(&common.SnapshotDatagram{Sender: h.Id, Snapshot: snap})
	if err != nil {
		h.log.Errorf("snapshot %d encode %s\n", snap.Sequence, err.Error())
		return nil
	}
	for _, r := range h.table.Records() {
		if r.Addr == nil {
			continue
		}
		err := h.socket.SendTo(r.Addr, data)
		if err != nil {
			h.log.Verbosef("snapshot %d to %s %s\n", snap.Sequence, r.Id.Short(), err.Error())
			continue
		}
		h.sentMetric.handle(MessageTypeSnapshot)
	}
	return nil
}

func (h *Host) answer(now time.Time) {
	if h.responder == nil {
		return
	}
	n, err := h.responder.Poll(now)
	h.sentMetric.add(MessageTypeDiscovery, uint32(n))
	if err != nil {
		h.log.Errorf("discovery responder down %s\n", err.Error())
		h.responder.Close()
		h.responder = nil
	}
}

func (h *Host) interrupt(err error) error {
	if h.interrupted {
		return common.ErrShutdown
	}
	h.interrupted = true
	h.log.Errorf("host interrupted %s\n", err.Error())
	h.Close()
	h.scene.OnDisconnect(err)
	return err
}

// Close releases every socket without notifying the scene.
func (h *Host) Close() error {
	if h.state == HostShuttingDown {
		return nil
	}
	h.state = HostShuttingDown

	var err error
	if h.responder != nil {
		h.responder.Close()
		h.responder = nil
	}
	if h.listener != nil {
		err = h.listener.Close()
	}
	if h.socket != nil {
		h.socket.Close()
	}
	for _, p := range h.pending {
		p.channel.Close()
	}
	h.pending = nil
	for _, r := range h.table.Records() {
		if r.Control != nil {
			r.Control.Close()
		}
	}
	h.publish()
	return err
}

func (h *Host) State() HostState {
	return h.state
}

func (h *Host) TcpAddr() *net.TCPAddr {
	if h.listener == nil {
		return nil
	}
	return h.listener.Addr()
}

func (h *Host) UdpAddr() *net.UDPAddr {
	if h.socket == nil {
		return nil
	}
	return h.socket.LocalAddr()
}

// Peers returns the admitted peers in admission order.
func (h *Host) Peers() []common.PeerId {
	var peers []common.PeerId
	for _, r := range h.table.Records() {
		peers = append(peers, r.Id)
	}
	return peers
}

func (h *Host) Metric() map[string]*MetricPool {
	return map[string]*MetricPool{
		"sent":     h.sentMetric.Copy(),
		"received": h.receivedMetric.Copy(),
	}
}
