package discovery

import (
	"context"
	"fmt"
	"sort"
	"testing"
	"time"

	"github.com/simplege/gamenet/common"
	"github.com/simplege/gamenet/config"
	"github.com/simplege/gamenet/logger"
	"github.com/simplege/gamenet/network"
	"github.com/stretchr/testify/require"
)

func testConfig(gameId string) *config.Custom {
	custom := config.Default()
	custom.Game.Id = gameId
	custom.Host.Listen = "127.0.0.1"
	custom.Discovery.Port = 0
	custom.Discovery.Interval = 100
	return custom
}

func startResponder(t *testing.T, gameId, name string, tcpPort int) (*Responder, func()) {
	custom := testConfig(gameId)
	r := NewResponder(custom, common.NewMsgpackCodec(false), logger.Discard())
	err := r.Listen(&common.DiscoveryAnnouncement{
		GameId:   gameId,
		Name:     name,
		TcpPort:  tcpPort,
		UdpPort:  tcpPort + 1,
		Metadata: map[string]string{"host": name},
	})
	require.Nil(t, err)

	done := make(chan struct{})
	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		for {
			select {
			case <-done:
				return
			case <-time.After(2 * time.Millisecond):
				r.Poll(time.Now())
			}
		}
	}()
	return r, func() {
		close(done)
		<-stopped
		r.Close()
	}
}

func TestLANSearch(t *testing.T) {
	require := require.New(t)

	r1, stop1 := startResponder(t, "squareShooter", "alpha", 7000)
	defer stop1()
	r2, stop2 := startResponder(t, "squareShooter", "beta", 8000)
	defer stop2()
	r3, stop3 := startResponder(t, "dvdLogo", "gamma", 9000)
	defer stop3()

	custom := testConfig("squareShooter")
	custom.Discovery.Targets = []string{
		r1.Addr().String(),
		r2.Addr().String(),
		r3.Addr().String(),
		r1.Addr().String(),
		"not a target",
	}
	service := NewLANService(custom, common.NewMsgpackCodec(false), logger.Discard())

	start := time.Now()
	found, err := service.Search(context.Background(), "squareShooter", 350*time.Millisecond)
	require.Nil(err)
	require.True(time.Since(start) >= 350*time.Millisecond)
	require.Len(found, 2)

	sort.Slice(found, func(i, j int) bool { return found[i].Name < found[j].Name })
	require.Equal("alpha", found[0].Name)
	require.Equal("127.0.0.1", found[0].Address)
	require.Equal(7000, found[0].TcpPort)
	require.Equal(7001, found[0].UdpPort)
	require.Equal("alpha", found[0].Metadata["host"])
	require.Equal("beta", found[1].Name)
	require.Equal(8000, found[1].TcpPort)

	found, err = service.Search(context.Background(), "pong", 100*time.Millisecond)
	require.Nil(err)
	require.Len(found, 0)
}

func TestLANSearchCancel(t *testing.T) {
	require := require.New(t)

	custom := testConfig("squareShooter")
	custom.Discovery.Targets = []string{"127.0.0.1:9"}
	service := NewLANService(custom, common.NewMsgpackCodec(false), logger.Discard())

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	start := time.Now()
	found, err := service.Search(ctx, "squareShooter", 5*time.Second)
	require.ErrorIs(err, context.DeadlineExceeded)
	require.Len(found, 0)
	require.True(time.Since(start) < time.Second)

	custom.Discovery.Targets = []string{"nowhere"}
	service = NewLANService(custom, common.NewMsgpackCodec(false), logger.Discard())
	_, err = service.Search(context.Background(), "squareShooter", time.Millisecond)
	require.NotNil(err)
}

func TestResponderDuplicates(t *testing.T) {
	require := require.New(t)

	codec := common.NewMsgpackCodec(false)
	custom := testConfig("squareShooter")
	r := NewResponder(custom, codec, logger.Discard())
	err := r.Listen(&common.DiscoveryAnnouncement{GameId: "dvdLogo"})
	require.NotNil(err)
	err = r.Listen(&common.DiscoveryAnnouncement{GameId: "squareShooter", Name: "alpha", TcpPort: 12345})
	require.Nil(err)
	defer r.Close()

	sock, err := network.ListenDatagram("udp4", "127.0.0.1:0")
	require.Nil(err)
	defer sock.Close()

	send := func(req *common.DiscoveryRequest) {
		data, err := codec.Encode(req)
		require.Nil(err)
		require.Nil(sock.SendTo(r.Addr(), data))
	}
	req := &common.DiscoveryRequest{GameId: "squareShooter", Nonce: [16]byte{1}}
	send(req)
	send(req)
	send(&common.DiscoveryRequest{GameId: "pong", Nonce: [16]byte{2}})
	require.Nil(sock.SendTo(r.Addr(), []byte("garbage")))
	time.Sleep(50 * time.Millisecond)

	now := time.Now()
	answered, err := r.Poll(now)
	require.Nil(err)
	require.Equal(1, answered)

	send(req)
	time.Sleep(50 * time.Millisecond)
	answered, err = r.Poll(now.Add(time.Second))
	require.Nil(err)
	require.Equal(1, answered)

	var replies int
	deadline := time.Now().Add(200 * time.Millisecond)
	for time.Now().Before(deadline) {
		d, err := sock.Poll()
		require.Nil(err)
		if d == nil {
			time.Sleep(5 * time.Millisecond)
			continue
		}
		var ann common.DiscoveryAnnouncement
		require.Nil(codec.Decode(d.Data, &ann))
		require.Equal("alpha", ann.Name)
		replies++
	}
	require.Equal(2, replies)
}

func TestStaticService(t *testing.T) {
	require := require.New(t)

	service, err := ParseStaticService("squareShooter", []string{"192.168.1.7:12345", "10.0.0.2:7239"})
	require.Nil(err)
	found, err := service.Search(context.Background(), "squareShooter", time.Second)
	require.Nil(err)
	require.Len(found, 2)
	require.Equal("192.168.1.7", found[0].Address)
	require.Equal(7239, found[1].TcpPort)

	found[0].Address = "changed"
	again, err := service.Search(context.Background(), "squareShooter", time.Second)
	require.Nil(err)
	require.Equal("192.168.1.7", again[0].Address)

	found, err = service.Search(context.Background(), "pong", time.Second)
	require.Nil(err)
	require.Len(found, 0)

	for _, bad := range []string{"192.168.1.7", "192.168.1.7:port", "192.168.1.7:70000"} {
		_, err = ParseStaticService("squareShooter", []string{bad})
		require.NotNil(err, fmt.Sprint(bad))
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = service.Search(ctx, "squareShooter", time.Second)
	require.NotNil(err)

	var _ Service = service
	var _ Service = &LANService{}
}
