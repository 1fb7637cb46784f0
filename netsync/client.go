package netsync

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/simplege/gamenet/common"
	"github.com/simplege/gamenet/config"
	"github.com/simplege/gamenet/logger"
	"github.com/simplege/gamenet/network"
)

type ClientState int

const (
	ClientDisconnected ClientState = iota
	ClientHandshaking
	ClientSynced
)

func (s ClientState) String() string {
	switch s {
	case ClientDisconnected:
		return "disconnected"
	case ClientHandshaking:
		return "handshaking"
	case ClientSynced:
		return "synced"
	}
	return fmt.Sprintf("unknown(%d)", int(s))
}

// Client joins one host and mirrors its world. Connect and Tick must be
// called from the same goroutine.
type Client struct {
	custom *config.Custom
	codec  common.Codec
	scene  Scene
	log    *logger.Logger
	now    func() time.Time

	id       common.PeerId
	state    ClientState
	reason   error
	control  network.Client
	socket   *network.DatagramSocket
	remote   *net.UDPAddr
	lastSeen time.Time

	sequences map[common.EntityId]uint64
	sequence  uint64
	view      []common.EntityState

	sentMetric     *MetricPool
	receivedMetric *MetricPool
}

type handshakeResult struct {
	resp *common.HandshakeResponse
	err  error
}

func NewClient(custom *config.Custom, codec common.Codec, scene Scene, log *logger.Logger) *Client {
	return &Client{
		custom:         custom,
		codec:          codec,
		scene:          scene,
		log:            log.Tagged("CLIENT"),
		now:            time.Now,
		sentMetric:     NewMetricPool(custom.RPC.Metric),
		receivedMetric: NewMetricPool(custom.RPC.Metric),
	}
}

// Connect performs the handshake with the host control address, bounded by
// the handshake timeout. It never retries, on failure the client is back to
// disconnected.
func (c *Client) Connect(ctx context.Context, addr string) error {
	if c.state != ClientDisconnected {
		return fmt.Errorf("client already %s", c.state)
	}
	c.state = ClientHandshaking
	c.reason = nil

	ctx, cancel := context.WithTimeout(ctx, c.custom.HandshakeTimeout())
	defer cancel()

	err := c.handshake(ctx, addr)
	if err != nil {
		c.release()
		c.state = ClientDisconnected
		c.reason = err
		c.log.Printf("connect %s failed %s\n", addr, err.Error())
		return err
	}

	c.state = ClientSynced
	c.lastSeen = c.now()
	c.sequences = make(map[common.EntityId]uint64)
	c.sequence = 0
	c.view = nil
	c.log.Printf("joined %s as %s, snapshots from %s\n", addr, c.id.Short(), c.remote.String())
	return nil
}

func (c *Client) handshake(ctx context.Context, addr string) error {
	transport, err := network.NewTcpClient(addr)
	if err != nil {
		return err
	}
	client, err := transport.Dial(ctx)
	if err != nil {
		return c.handshakeError(ctx, err)
	}
	c.control = client

	req, err := c.codec.Encode(&common.HandshakeRequest{GameId: c.custom.Game.Id})
	if err != nil {
		return err
	}
	err = client.Send(req)
	if err != nil {
		return c.handshakeError(ctx, err)
	}
	c.sentMetric.handle(MessageTypeHandshake)

	result := make(chan handshakeResult, 1)
	go func() {
		msg, err := client.Receive()
		if err != nil {
			result <- handshakeResult{err: err}
			return
		}
		var resp common.HandshakeResponse
		err = c.codec.Decode(msg.Data, &resp)
		result <- handshakeResult{resp: &resp, err: err}
	}()

	var resp *common.HandshakeResponse
	select {
	case r := <-result:
		if r.err != nil {
			return c.handshakeError(ctx, r.err)
		}
		resp = r.resp
	case <-ctx.Done():
		client.Close()
		return c.handshakeError(ctx, ctx.Err())
	}
	c.receivedMetric.handle(MessageTypeHandshake)

	if !resp.PeerId.HasValue() || resp.UdpPort <= 0 || resp.UdpPort > 65535 {
		return fmt.Errorf("%w: invalid response %s %d", common.ErrHandshakeRefused, resp.PeerId, resp.UdpPort)
	}
	tcp, ok := client.RemoteAddr().(*net.TCPAddr)
	if !ok {
		return fmt.Errorf("invalid remote address %s", client.RemoteAddr().String())
	}
	local, ok := client.LocalAddr().(*net.TCPAddr)
	if !ok {
		return fmt.Errorf("invalid local address %s", client.LocalAddr().String())
	}
	socket, err := network.ListenDatagram("udp", net.JoinHostPort(local.IP.String(), "0"))
	if err != nil {
		return err
	}
	c.id = resp.PeerId
	c.socket = socket
	c.remote = &net.UDPAddr{IP: tcp.IP, Port: resp.UdpPort}
	return nil
}

func (c *Client) handshakeError(ctx context.Context, err error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return common.ErrHandshakeTimeout
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return fmt.Errorf("%w: %s", common.ErrHandshakeRefused, err.Error())
}

// Tick sends the local states, applies the newest snapshot received since
// the last tick and checks host liveness. The error is the disconnect
// reason once the client is no longer synced.
func (c *Client) Tick() error {
	if c.state != ClientSynced {
		if c.reason != nil {
			return c.reason
		}
		return fmt.Errorf("client %s", c.state)
	}

	now := c.now()
	c.send()
	applied, err := c.receive(now)
	if err != nil {
		return c.disconnect(err)
	}
	if now.Sub(c.lastSeen) > c.custom.ClientLivenessTimeout() {
		return c.disconnect(common.ErrLivenessTimeout)
	}
	if applied {
		c.scene.OnRemoteState(c.View())
	}
	return nil
}

func (c *Client) send() {
	local := c.scene.LocalState()
	states := make([]common.EntityState, 0, len(local))
	for _, es := range local {
		c.sequences[es.Entity]++
		es.Owner = c.id
		es.Sequence = c.sequences[es.Entity]
		states = append(states, es)
	}
	data, err := c.codec.Encode(&common.StateDatagram{Sender: c.id, States: states})
	if err != nil {
		c.log.Errorf("state encode %s\n", err.Error())
		return
	}
	err = c.socket.SendTo(c.remote, data)
	if err != nil {
		c.log.Errorf("state to %s %s\n", c.remote.String(), err.Error())
		return
	}
	c.sentMetric.handle(MessageTypeState)
}

func (c *Client) receive(now time.Time) (bool, error) {
	var applied bool
	for i := 0; i < config.QueueSize; i++ {
		d, err := c.socket.Poll()
		if err != nil {
			return applied, err
		}
		if d == nil {
			break
		}
		if !d.Addr.IP.Equal(c.remote.IP) || d.Addr.Port != c.remote.Port {
			c.receivedMetric.handle(MessageTypeInvalid)
			c.log.Debugf("datagram from stranger %s\n", d.Addr.String())
			continue
		}

		var msg common.SnapshotDatagram
		err = c.codec.Decode(d.Data, &msg)
		if err != nil {
			c.receivedMetric.handle(MessageTypeInvalid)
			c.log.Debugf("snapshot datagram %s\n", err.Error())
			continue
		}
		c.lastSeen = now
		if msg.Snapshot.Sequence <= c.sequence {
			c.receivedMetric.handle(MessageTypeStale)
			continue
		}
		c.receivedMetric.handle(MessageTypeSnapshot)
		c.sequence = msg.Snapshot.Sequence

		view := make([]common.EntityState, 0, len(msg.Snapshot.States))
		for _, es := range msg.Snapshot.States {
			if es.Owner == c.id {
				continue
			}
			view = append(view, es)
		}
		c.view = view
		applied = true
	}
	return applied, nil
}

func (c *Client) disconnect(reason error) error {
	if c.state == ClientDisconnected {
		return c.reason
	}
	c.log.Printf("disconnected from %s %s\n", c.remote.String(), reason.Error())
	c.state = ClientDisconnected
	c.reason = reason
	c.release()
	c.scene.OnDisconnect(reason)
	return reason
}

func (c *Client) release() {
	if c.control != nil {
		c.control.Close()
		c.control = nil
	}
	if c.socket != nil {
		c.socket.Close()
		c.socket = nil
	}
}

// Close leaves the session without notifying the scene.
func (c *Client) Close() error {
	if c.state == ClientDisconnected {
		return nil
	}
	c.release()
	c.state = ClientDisconnected
	c.reason = common.ErrShutdown
	return nil
}

func (c *Client) Id() common.PeerId {
	return c.id
}

func (c *Client) State() ClientState {
	return c.state
}

// Reason is the cause of the last disconnection, nil while synced.
func (c *Client) Reason() error {
	return c.reason
}

// Remote is the host address snapshots are accepted from.
func (c *Client) Remote() *net.UDPAddr {
	return c.remote
}

// Sequence is the last applied snapshot sequence.
func (c *Client) Sequence() uint64 {
	return c.sequence
}

// View returns a copy of the remote entities of the last applied snapshot.
func (c *Client) View() []common.EntityState {
	view := make([]common.EntityState, len(c.view))
	copy(view, c.view)
	return view
}

func (c *Client) Metric() map[string]*MetricPool {
	return map[string]*MetricPool{
		"sent":     c.sentMetric.Copy(),
		"received": c.receivedMetric.Copy(),
	}
}
