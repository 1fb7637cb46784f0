package netsync

import (
	"context"
	"errors"
	"net"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/simplege/gamenet/common"
	"github.com/simplege/gamenet/logger"
	"github.com/simplege/gamenet/network"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientLiveness(t *testing.T) {
	require := require.New(t)

	host := startHost(t, testConfig(), &testScene{local: []common.EntityState{entity(1, 1)}})
	defer host.Close()

	clock := &fakeClock{t: time.Now()}
	scene := &testScene{}
	client := NewClient(testConfig(), common.NewMsgpackCodec(false), scene, logger.Discard())
	client.now = clock.now
	require.Nil(connect(t, host, client))

	until(t, func() bool { return len(scene.remote) > 0 }, client.Tick, host.Tick)

	time.Sleep(20 * time.Millisecond)
	require.Nil(client.Tick())
	clock.advance(5 * time.Second)
	require.Nil(client.Tick())
	require.Equal(ClientSynced, client.State())

	clock.advance(time.Millisecond)
	err := client.Tick()
	require.Equal(common.ErrLivenessTimeout, err)
	require.Equal(ClientDisconnected, client.State())
	require.Equal([]error{common.ErrLivenessTimeout}, scene.disconnects)

	require.Equal(common.ErrLivenessTimeout, client.Tick())
	require.Nil(client.Close())
	require.Len(scene.disconnects, 1)
}

func TestSnapshotOrdering(t *testing.T) {
	require := require.New(t)

	hostScene := &testScene{local: []common.EntityState{entity(1, 1)}}
	host := startHost(t, testConfig(), hostScene)
	defer host.Close()

	scene := &testScene{local: []common.EntityState{entity(2, 2)}}
	client := NewClient(testConfig(), common.NewMsgpackCodec(false), scene, logger.Discard())
	require.Nil(connect(t, host, client))
	defer client.Close()

	var last uint64
	for i := 0; i < 10; i++ {
		require.Nil(client.Tick())
		require.Nil(host.Tick())
		time.Sleep(5 * time.Millisecond)
		require.GreaterOrEqual(client.Sequence(), last)
		last = client.Sequence()
	}
	require.True(last > 0)
	for _, view := range scene.remote {
		for _, es := range view {
			require.NotEqual(client.Id(), es.Owner)
		}
	}

	codec := common.NewMsgpackCodec(false)
	local := &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: client.socket.LocalAddr().Port}
	inject := func(sock *network.DatagramSocket, seq uint64, x float64) {
		es := hostScene.local[0]
		es.Owner = host.Id
		es.Sequence = seq
		es.Position.X = x
		mine := scene.local[0]
		mine.Owner = client.Id()
		mine.Sequence = seq
		data, err := codec.Encode(&common.SnapshotDatagram{
			Sender:   host.Id,
			Snapshot: common.WorldSnapshot{Sequence: seq, States: []common.EntityState{es, mine}},
		})
		require.Nil(err)
		require.Nil(sock.SendTo(local, data))
	}

	inject(host.socket, last+100, 100)
	inject(host.socket, last+50, 50)
	stranger, err := network.ListenDatagram("udp4", "127.0.0.1:0")
	require.Nil(err)
	defer stranger.Close()
	inject(stranger, last+1000, 1000)
	time.Sleep(50 * time.Millisecond)

	count := len(scene.remote)
	require.Nil(client.Tick())
	require.Equal(last+100, client.Sequence())
	require.Len(scene.remote, count+1)
	view := client.View()
	require.Len(view, 1)
	require.Equal(100.0, view[0].Position.X)
	require.Equal(host.Id, view[0].Owner)

	received := client.Metric()["received"]
	require.True(received.MessageTypeStale >= 1)
	require.True(received.MessageTypeInvalid >= 1)
}

func TestJoinOverIPv6(t *testing.T) {
	require := require.New(t)

	l, err := net.Listen("tcp6", "[::1]:0")
	if err != nil {
		t.Skip("ipv6 loopback unavailable")
	}
	l.Close()

	custom := testConfig()
	custom.Host.Listen = "0.0.0.0"
	hostScene := &testScene{local: []common.EntityState{entity(1, 1)}}
	host := startHost(t, custom, hostScene)
	defer host.Close()

	scene := &testScene{local: []common.EntityState{entity(2, 2)}}
	client := NewClient(testConfig(), common.NewMsgpackCodec(false), scene, logger.Discard())
	addr := net.JoinHostPort("::1", strconv.Itoa(host.TcpAddr().Port))
	done := make(chan error, 1)
	go func() {
		done <- client.Connect(context.Background(), addr)
	}()
	until(t, func() bool { return len(done) > 0 }, host.Tick)
	require.Nil(<-done)
	defer client.Close()

	require.True(client.Remote().IP.Equal(net.IPv6loopback))
	require.True(client.socket.LocalAddr().IP.Equal(net.IPv6loopback))

	until(t, func() bool {
		return len(hostScene.applied()) > 0 && len(scene.remote) > 0
	}, client.Tick, host.Tick)
	require.Equal(client.Id(), hostScene.applied()[0].Owner)
	require.Equal(uint32(0), client.Metric()["received"].MessageTypeInvalid)
	record := host.table.Get(client.Id())
	require.True(record.Addr.IP.Equal(net.IPv6loopback))
	require.Equal(host.Id, scene.latest()[0].Owner)
}

func TestClientState(t *testing.T) {
	assert := assert.New(t)

	client := NewClient(testConfig(), common.NewMsgpackCodec(false), &testScene{}, logger.Discard())
	assert.Equal("disconnected", client.State().String())
	assert.Equal("synced", ClientSynced.String())
	assert.Equal("shutting-down", HostShuttingDown.String())
	assert.NotNil(client.Tick())
	assert.Nil(client.Close())
	assert.Len(client.View(), 0)

	err := client.Connect(context.Background(), "invalid address")
	assert.NotNil(err)
	assert.False(errors.Is(err, common.ErrHandshakeRefused))
	assert.Equal(ClientDisconnected, client.State())
}

func TestLoop(t *testing.T) {
	require := require.New(t)

	require.NotNil(Loop(context.Background(), 0, func() error { return nil }))

	var ticks int
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	err := Loop(ctx, 10*time.Millisecond, func() error {
		ticks++
		return nil
	})
	require.Equal(context.DeadlineExceeded, err)
	require.True(ticks > 5, ticks)

	failure := errors.New("game over")
	ticks = 0
	err = Loop(context.Background(), 10*time.Millisecond, func() error {
		ticks++
		if ticks == 3 {
			return failure
		}
		return nil
	})
	require.Equal(failure, err)
	require.Equal(3, ticks)
}

func TestMetricPool(t *testing.T) {
	assert := assert.New(t)

	mp := NewMetricPool(true)
	mp.handle(MessageTypeSnapshot)
	mp.handle(MessageTypeSnapshot)
	mp.add(MessageTypeDiscovery, 3)
	mp.handle(99)
	assert.Equal(uint32(2), mp.MessageTypeSnapshot)
	assert.Equal(uint32(3), mp.MessageTypeDiscovery)
	assert.True(strings.Contains(mp.String(), `"snapshot":2`))

	copied := mp.Copy()
	mp.handle(MessageTypeSnapshot)
	assert.Equal(uint32(2), copied.MessageTypeSnapshot)

	off := NewMetricPool(false)
	off.handle(MessageTypeState)
	assert.Equal(uint32(0), off.MessageTypeState)
}
