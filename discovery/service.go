package discovery

import (
	"context"
	"time"

	"github.com/simplege/gamenet/common"
)

// Service finds hosts of a game before any session exists. Search returns
// after the timeout elapses, with every distinct host that answered.
type Service interface {
	Search(ctx context.Context, gameId string, timeout time.Duration) ([]*common.DiscoveryAnnouncement, error)
}
