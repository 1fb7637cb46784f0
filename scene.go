package main

import (
	"math"

	"github.com/simplege/gamenet/common"
	"github.com/simplege/gamenet/logger"
)

const (
	worldWidth  = 1200
	worldHeight = 600
	logoWidth   = 100
	logoHeight  = 50
	logoSpeed   = 5
)

// bouncer is one logo drifting across the world and bouncing off its edges.
type bouncer struct {
	id     common.EntityId
	x, y   float64
	dx, dy float64
}

func newBouncer(x, y, dx, dy float64) *bouncer {
	return &bouncer{id: common.NewEntityId(), x: x, y: y, dx: dx, dy: dy}
}

func (b *bouncer) step() bool {
	b.x += b.dx
	b.y += b.dy

	halfW, halfH := float64(logoWidth)/2, float64(logoHeight)/2
	var bounce bool
	if b.x+halfW > worldWidth {
		b.x, b.dx, bounce = worldWidth-halfW, -b.dx, true
	}
	if b.x-halfW < 0 {
		b.x, b.dx, bounce = halfW, -b.dx, true
	}
	if b.y+halfH > worldHeight {
		b.y, b.dy, bounce = worldHeight-halfH, -b.dy, true
	}
	if b.y-halfH < 0 {
		b.y, b.dy, bounce = halfH, -b.dy, true
	}
	return bounce
}

func (b *bouncer) state() common.EntityState {
	return common.EntityState{
		Entity:      b.id,
		Position:    common.Position{X: b.x, Y: b.y},
		Orientation: math.Atan2(b.dy, b.dx) * 180 / math.Pi,
	}
}

// demoScene moves its own logos every tick and keeps the latest remote view.
// A client scene gets the whole view on every update, a host scene only the
// states applied during the tick.
type demoScene struct {
	log     *logger.Logger
	full    bool
	logos   []*bouncer
	remote  map[common.EntityId]common.EntityState
	bounces int
}

func newDemoScene(log *logger.Logger, full bool, logos ...*bouncer) *demoScene {
	return &demoScene{
		log:    log.Tagged("SCENE"),
		full:   full,
		logos:  logos,
		remote: make(map[common.EntityId]common.EntityState),
	}
}

func (s *demoScene) LocalState() []common.EntityState {
	states := make([]common.EntityState, 0, len(s.logos))
	for _, b := range s.logos {
		if b.step() {
			s.bounces++
			s.log.Debugf("logo %s bounced at (%.0f, %.0f)\n", b.id, b.x, b.y)
		}
		states = append(states, b.state())
	}
	return states
}

func (s *demoScene) OnRemoteState(states []common.EntityState) {
	previous := s.remote
	if s.full {
		s.remote = make(map[common.EntityId]common.EntityState)
	}
	for _, es := range states {
		if _, known := previous[es.Entity]; !known {
			s.log.Printf("remote logo %s of %s\n", es.Entity, es.Owner.Short())
		}
		s.remote[es.Entity] = es
	}
}

func (s *demoScene) OnDisconnect(reason error) {
	s.log.Printf("disconnected %s\n", reason.Error())
}

func (s *demoScene) OnPeerJoined(id common.PeerId) {
	s.log.Printf("peer %s joined\n", id.Short())
}

func (s *demoScene) OnPeerLeft(id common.PeerId, reason error) {
	for eid, es := range s.remote {
		if es.Owner == id {
			delete(s.remote, eid)
		}
	}
	s.log.Printf("peer %s left %s\n", id.Short(), reason.Error())
}
