package discovery

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/simplege/gamenet/common"
)

// StaticService answers searches from a fixed list, for hosts entered by hand
// or networks where broadcast does not reach.
type StaticService struct {
	announcements []*common.DiscoveryAnnouncement
}

func NewStaticService(announcements ...*common.DiscoveryAnnouncement) *StaticService {
	return &StaticService{announcements: announcements}
}

// ParseStaticService builds a static service from host:port addresses of
// the given game.
func ParseStaticService(gameId string, addrs []string) (*StaticService, error) {
	var announcements []*common.DiscoveryAnnouncement
	for _, a := range addrs {
		host, port, err := net.SplitHostPort(a)
		if err != nil {
			return nil, fmt.Errorf("invalid address %s %s", a, err)
		}
		p, err := strconv.Atoi(port)
		if err != nil || p <= 0 || p > 65535 {
			return nil, fmt.Errorf("invalid port %s", a)
		}
		announcements = append(announcements, &common.DiscoveryAnnouncement{
			GameId:  gameId,
			Name:    host,
			Address: host,
			TcpPort: p,
		})
	}
	return NewStaticService(announcements...), nil
}

func (s *StaticService) Search(ctx context.Context, gameId string, timeout time.Duration) ([]*common.DiscoveryAnnouncement, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var found []*common.DiscoveryAnnouncement
	for _, a := range s.announcements {
		if a.GameId != gameId {
			continue
		}
		ann := *a
		found = append(found, &ann)
	}
	return found, nil
}
