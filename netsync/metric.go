package netsync

import (
	"encoding/json"
	"sync/atomic"
)

const (
	MessageTypeHandshake = 1
	MessageTypeState     = 2
	MessageTypeSnapshot  = 3
	MessageTypeDiscovery = 4
	MessageTypeStale     = 5
	MessageTypeInvalid   = 6
)

type MetricPool struct {
	enabled bool

	MessageTypeHandshake uint32 `json:"handshake"`
	MessageTypeState     uint32 `json:"state"`
	MessageTypeSnapshot  uint32 `json:"snapshot"`
	MessageTypeDiscovery uint32 `json:"discovery"`
	MessageTypeStale     uint32 `json:"stale"`
	MessageTypeInvalid   uint32 `json:"invalid"`
}

func NewMetricPool(enabled bool) *MetricPool {
	return &MetricPool{enabled: enabled}
}

func (mp *MetricPool) handle(msg uint8) {
	mp.add(msg, 1)
}

func (mp *MetricPool) add(msg uint8, n uint32) {
	if !mp.enabled || n == 0 {
		return
	}

	switch msg {
	case MessageTypeHandshake:
		atomic.AddUint32(&mp.MessageTypeHandshake, n)
	case MessageTypeState:
		atomic.AddUint32(&mp.MessageTypeState, n)
	case MessageTypeSnapshot:
		atomic.AddUint32(&mp.MessageTypeSnapshot, n)
	case MessageTypeDiscovery:
		atomic.AddUint32(&mp.MessageTypeDiscovery, n)
	case MessageTypeStale:
		atomic.AddUint32(&mp.MessageTypeStale, n)
	case MessageTypeInvalid:
		atomic.AddUint32(&mp.MessageTypeInvalid, n)
	}
}

// Copy loads every counter atomically, the result is safe to marshal while
// the tick goroutine keeps counting.
func (mp *MetricPool) Copy() *MetricPool {
	return &MetricPool{
		enabled:              mp.enabled,
		MessageTypeHandshake: atomic.LoadUint32(&mp.MessageTypeHandshake),
		MessageTypeState:     atomic.LoadUint32(&mp.MessageTypeState),
		MessageTypeSnapshot:  atomic.LoadUint32(&mp.MessageTypeSnapshot),
		MessageTypeDiscovery: atomic.LoadUint32(&mp.MessageTypeDiscovery),
		MessageTypeStale:     atomic.LoadUint32(&mp.MessageTypeStale),
		MessageTypeInvalid:   atomic.LoadUint32(&mp.MessageTypeInvalid),
	}
}

func (mp *MetricPool) String() string {
	b, err := json.Marshal(mp.Copy())
	if err != nil {
		panic(err)
	}
	return string(b)
}
