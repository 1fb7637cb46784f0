package session

import (
	"fmt"
	"net"
	"sort"
	"time"

	"github.com/simplege/gamenet/common"
)

// Control is the control channel held by a record, nil for records created
// without one.
type Control interface {
	RemoteAddr() net.Addr
	Close() error
}

type Record struct {
	Id       common.PeerId
	Addr     *net.UDPAddr
	Control  Control
	JoinedAt time.Time
	LastSeen time.Time

	admission uint64
	sequences map[common.EntityId]uint64
	states    map[common.EntityId]common.EntityState
}

// Apply accepts the state only when its sequence is strictly greater than
// the last one applied for the same entity, tracking starts at zero.
func (r *Record) Apply(es common.EntityState) bool {
	if es.Owner != r.Id {
		return false
	}
	if es.Sequence <= r.sequences[es.Entity] {
		return false
	}
	r.sequences[es.Entity] = es.Sequence
	r.states[es.Entity] = es
	return true
}

// States returns the accepted states ordered by entity id.
func (r *Record) States() []common.EntityState {
	states := make([]common.EntityState, 0, len(r.states))
	for _, es := range r.states {
		states = append(states, es)
	}
	sort.Slice(states, func(i, j int) bool {
		return lessEntity(states[i].Entity, states[j].Entity)
	})
	return states
}

func (r *Record) LastSequence(id common.EntityId) uint64 {
	return r.sequences[id]
}

// Table is the host side registry of admitted clients. It is not safe for
// concurrent use, only the host tick touches it.
type Table struct {
	records   map[common.PeerId]*Record
	retired   map[common.PeerId]bool
	admission uint64
}

func NewTable() *Table {
	return &Table{
		records: make(map[common.PeerId]*Record),
		retired: make(map[common.PeerId]bool),
	}
}

func (t *Table) Admit(id common.PeerId, control Control, now time.Time) (*Record, error) {
	if !id.HasValue() {
		return nil, fmt.Errorf("invalid peer id %s", id)
	}
	if t.retired[id] {
		return nil, fmt.Errorf("peer id %s retired", id)
	}
	if t.records[id] != nil {
		return nil, fmt.Errorf("peer id %s already admitted", id)
	}
	t.admission++
	r := &Record{
		Id:        id,
		Control:   control,
		JoinedAt:  now,
		LastSeen:  now,
		admission: t.admission,
		sequences: make(map[common.EntityId]uint64),
		states:    make(map[common.EntityId]common.EntityState),
	}
	t.records[id] = r
	return r, nil
}

func (t *Table) Get(id common.PeerId) *Record {
	return t.records[id]
}

func (t *Table) Len() int {
	return len(t.records)
}

// Touch refreshes the liveness of a known peer and learns its UDP address.
func (t *Table) Touch(id common.PeerId, addr *net.UDPAddr, now time.Time) *Record {
	r := t.records[id]
	if r == nil {
		return nil
	}
	if addr != nil {
		r.Addr = addr
	}
	if now.After(r.LastSeen) {
		r.LastSeen = now
	}
	return r
}

// Prune removes and retires every record silent for longer than timeout.
func (t *Table) Prune(now time.Time, timeout time.Duration) []*Record {
	var pruned []*Record
	for id, r := range t.records {
		if now.Sub(r.LastSeen) > timeout {
			pruned = append(pruned, r)
			delete(t.records, id)
			t.retired[id] = true
		}
	}
	sort.Slice(pruned, func(i, j int) bool {
		return pruned[i].admission < pruned[j].admission
	})
	return pruned
}

func (t *Table) Retired(id common.PeerId) bool {
	return t.retired[id]
}

// Records returns the live records in admission order.
func (t *Table) Records() []*Record {
	records := make([]*Record, 0, len(t.records))
	for _, r := range t.records {
		records = append(records, r)
	}
	sort.Slice(records, func(i, j int) bool {
		return records[i].admission < records[j].admission
	})
	return records
}

// States returns the accepted states of all live records, grouped by peer in
// admission order.
func (t *Table) States() []common.EntityState {
	var states []common.EntityState
	for _, r := range t.Records() {
		states = append(states, r.States()...)
	}
	return states
}

func lessEntity(a, b common.EntityId) bool {
	for i := range a {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return false
}
