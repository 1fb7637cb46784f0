package netsync

import "github.com/simplege/gamenet/common"

// Scene is what the game hands to a synchronizer. LocalState returns the
// entities this endpoint owns, owner and sequence are stamped by the
// synchronizer. All callbacks run on the goroutine calling Tick.
type Scene interface {
	LocalState() []common.EntityState
	OnRemoteState(states []common.EntityState)
	OnDisconnect(reason error)
}

// PeerObserver is optionally implemented by a host scene to learn about
// admitted and pruned peers.
type PeerObserver interface {
	OnPeerJoined(id common.PeerId)
	OnPeerLeft(id common.PeerId, reason error)
}
