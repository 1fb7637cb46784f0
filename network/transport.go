package network

import (
	"context"
	"net"
	"time"
)

const (
	TransportMessageVersion    = 1
	TransportMessageMaxSize    = 64 * 1024
	TransportMessageHeaderSize = 6

	WriteDeadline = 3 * time.Second
)

type TransportMessage struct {
	Version uint8
	Size    uint32
	Data    []byte
}

type Client interface {
	LocalAddr() net.Addr
	RemoteAddr() net.Addr
	Receive() (*TransportMessage, error)
	Send([]byte) error
	Close() error
}

type Transport interface {
	Listen() error
	Addr() net.Addr
	Dial(ctx context.Context) (Client, error)
	Accept(ctx context.Context) (Client, error)
	Close() error
}
