package common

import (
	"encoding/hex"

	"github.com/gofrs/uuid"
)

type PeerId [16]byte

type EntityId [16]byte

func NewPeerId() PeerId {
	return PeerId(newRandomId())
}

func NewEntityId() EntityId {
	return EntityId(newRandomId())
}

func (id PeerId) String() string {
	return uuid.UUID(id).String()
}

func (id PeerId) HasValue() bool {
	return id != PeerId{}
}

// Short is the tail of the id, enough to tell peers apart in logs.
func (id PeerId) Short() string {
	return hex.EncodeToString(id[12:])
}

func (id EntityId) String() string {
	return uuid.UUID(id).String()
}

func newRandomId() uuid.UUID {
	id, err := uuid.NewV4()
	if err != nil {
		panic(err)
	}
	return id
}

type Position struct {
	X float64
	Y float64
}

// EntityState is the latest known pose of one entity. Sequence is assigned
// by the owner and grows by one for every state the owner sends.
type EntityState struct {
	Owner       PeerId
	Entity      EntityId
	Position    Position
	Orientation float64
	Sequence    uint64
}

type WorldSnapshot struct {
	Sequence uint64
	States   []EntityState
}
