package main

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/simplege/gamenet/common"
	"github.com/simplege/gamenet/config"
	"github.com/simplege/gamenet/discovery"
	"github.com/simplege/gamenet/logger"
	"github.com/simplege/gamenet/netsync"
	"github.com/simplege/gamenet/rpc"
	"github.com/urfave/cli/v2"
)

func hostCmd(c *cli.Context) error {
	custom, log, err := setupConfig(c)
	if err != nil {
		return err
	}
	if p := c.Int("port"); p > 0 {
		custom.Host.TcpPort = p
	}
	if name := c.String("name"); name != "" {
		custom.Host.Name = name
	}
	if c.Bool("hidden") {
		custom.Discovery.Hidden = true
	}
	if p := c.Int("rpc"); p > 0 {
		custom.RPC.Port = p
	}

	codec := common.NewMsgpackCodec(custom.Codec.Compress)
	scene := newDemoScene(log, false, newBouncer(worldWidth/2, worldHeight/2, logoSpeed, logoSpeed))
	host := netsync.NewHost(custom, codec, scene, log)
	err = host.Listen()
	if err != nil {
		return err
	}
	defer host.Close()

	if p := custom.RPC.Port; p > 0 {
		server := rpc.NewServer(host, p)
		go func() {
			err := server.ListenAndServe()
			if err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Errorf("rpc server %s\n", err.Error())
			}
		}()
		defer server.Close()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return runLoop(ctx, custom, host.Tick)
}

func joinCmd(c *cli.Context) error {
	custom, log, err := setupConfig(c)
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	codec := common.NewMsgpackCodec(custom.Codec.Compress)
	addr := c.String("addr")
	if addr == "" {
		service, err := searchService(c, custom, codec, log)
		if err != nil {
			return err
		}
		found, err := service.Search(ctx, custom.Game.Id, custom.DiscoveryWindow())
		if err != nil {
			return err
		}
		if len(found) == 0 {
			return fmt.Errorf("no host found for %s", custom.Game.Id)
		}
		addr = net.JoinHostPort(found[0].Address, strconv.Itoa(found[0].TcpPort))
	}

	logo := newBouncer(
		logoWidth+rand.Float64()*(worldWidth-2*logoWidth),
		logoHeight+rand.Float64()*(worldHeight-2*logoHeight),
		-logoSpeed, logoSpeed)
	scene := newDemoScene(log, true, logo)
	client := netsync.NewClient(custom, codec, scene, log)
	err = client.Connect(ctx, addr)
	if err != nil {
		return err
	}
	defer client.Close()

	return runLoop(ctx, custom, client.Tick)
}

func searchCmd(c *cli.Context) error {
	custom, log, err := setupConfig(c)
	if err != nil {
		return err
	}
	window := custom.DiscoveryWindow()
	if w := c.Duration("window"); w > 0 {
		window = w
	}

	codec := common.NewMsgpackCodec(custom.Codec.Compress)
	service := discovery.NewLANService(custom, codec, log)
	found, err := service.Search(c.Context, custom.Game.Id, window)
	if err != nil {
		return err
	}
	for _, a := range found {
		fmt.Printf("%s\t%s:%d\t%v\n", a.Name, a.Address, a.TcpPort, a.Metadata)
	}
	return nil
}

func searchService(c *cli.Context, custom *config.Custom, codec common.Codec, log *logger.Logger) (discovery.Service, error) {
	if static := c.StringSlice("static"); len(static) > 0 {
		return discovery.ParseStaticService(custom.Game.Id, static)
	}
	return discovery.NewLANService(custom, codec, log), nil
}

func runLoop(ctx context.Context, custom *config.Custom, tick func() error) error {
	err := netsync.Loop(ctx, custom.TickInterval(), tick)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func getInfoCmd(c *cli.Context) error {
	info, err := rpc.GetInfo(c.String("node"))
	if err != nil {
		return err
	}
	fmt.Printf("%s %s %s %s\n", info.Name, info.Id, info.Game, info.Version)
	fmt.Printf("state: %s uptime: %s\n", info.State, info.Uptime)
	fmt.Printf("tcp: %s udp: %s discovery: %s\n", info.TcpAddr, info.UdpAddr, info.Discovery)
	fmt.Printf("sequence: %d entities: %d peers: %d pending: %d dropped: %d\n",
		info.Sequence, info.Entities, info.Peers, info.Pending, info.Dropped)
	return nil
}

func listPeersCmd(c *cli.Context) error {
	peers, err := rpc.ListPeers(c.String("node"))
	if err != nil {
		return err
	}
	for _, p := range peers {
		fmt.Printf("%s\t%s\t%s\t%d\t%s\n", p.Id, p.Addr, p.Control, p.Entities, p.LastSeen.Format(time.RFC3339))
	}
	return nil
}

func getMetricCmd(c *cli.Context) error {
	metric, err := rpc.GetMetric(c.String("node"))
	if err != nil {
		return err
	}
	for _, k := range []string{"sent", "received"} {
		if mp := metric[k]; mp != nil {
			fmt.Printf("%s\t%s\n", k, mp.String())
		}
	}
	return nil
}
