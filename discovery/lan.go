package discovery

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/gofrs/uuid"
	"github.com/simplege/gamenet/common"
	"github.com/simplege/gamenet/config"
	"github.com/simplege/gamenet/logger"
	"github.com/simplege/gamenet/network"
	"github.com/simplege/gamenet/util"
)

const pollInterval = 5 * time.Millisecond

type LANService struct {
	targets  []string
	interval time.Duration
	codec    common.Codec
	log      *logger.Logger
}

func NewLANService(custom *config.Custom, codec common.Codec, log *logger.Logger) *LANService {
	return &LANService{
		targets:  custom.Discovery.Targets,
		interval: custom.DiscoveryInterval(),
		codec:    codec,
		log:      log.Tagged("DISCOVERY"),
	}
}

func (s *LANService) Search(ctx context.Context, gameId string, timeout time.Duration) ([]*common.DiscoveryAnnouncement, error) {
	var targets []*net.UDPAddr
	for _, t := range s.targets {
		addr, err := net.ResolveUDPAddr("udp4", t)
		if err != nil {
			s.log.Verbosef("invalid discovery target %s %s\n", t, err.Error())
			continue
		}
		targets = append(targets, addr)
	}
	if len(targets) == 0 {
		return nil, fmt.Errorf("no valid discovery target in %v", s.targets)
	}

	sock, err := network.ListenDatagram("udp4", "0.0.0.0:0")
	if err != nil {
		return nil, err
	}
	defer sock.Close()

	nonce, err := uuid.NewV4()
	if err != nil {
		return nil, err
	}
	req, err := s.codec.Encode(&common.DiscoveryRequest{GameId: gameId, Nonce: nonce})
	if err != nil {
		return nil, err
	}
	broadcast := func() {
		for _, addr := range targets {
			err := sock.SendTo(addr, req)
			if err != nil {
				s.log.Verbosef("discovery request to %s error %s\n", addr.String(), err.Error())
			}
		}
	}

	s.log.Printf("Searching for games (%s) for %s\n", gameId, timeout)
	broadcast()

	window := util.NewTimer(timeout)
	defer window.Stop()
	resend := util.NewTimer(s.interval)
	defer resend.Stop()
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	seen := make(map[string]bool)
	var found []*common.DiscoveryAnnouncement
	for {
		err := s.drain(sock, gameId, seen, &found)
		if err != nil {
			return found, err
		}

		select {
		case <-ctx.Done():
			return found, ctx.Err()
		case <-window.C():
			window.Drain()
			if len(found) == 0 {
				s.log.Printf("No matching games found.\n")
			}
			return found, nil
		case <-resend.C():
			resend.Drain()
			broadcast()
			resend.Reset(s.interval)
		case <-ticker.C:
		}
	}
}

func (s *LANService) drain(sock *network.DatagramSocket, gameId string, seen map[string]bool, found *[]*common.DiscoveryAnnouncement) error {
	for {
		d, err := sock.Poll()
		if err != nil || d == nil {
			return err
		}
		var ann common.DiscoveryAnnouncement
		err = s.codec.Decode(d.Data, &ann)
		if err != nil {
			s.log.Debugf("discovery response from %s %s\n", d.Addr.String(), err.Error())
			continue
		}
		if ann.GameId != gameId {
			continue
		}
		key := d.Addr.String()
		if seen[key] {
			continue
		}
		seen[key] = true
		ann.Address = d.Addr.IP.String()
		if ann.Name == "" {
			ann.Name = ann.Address
		}
		*found = append(*found, &ann)
		s.log.Printf("Found: %s at %s:%d\n", ann.Name, ann.Address, ann.TcpPort)
	}
}
