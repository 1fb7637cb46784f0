package network

import (
	"errors"
	"fmt"
	"net"
	"sync"

	"github.com/simplege/gamenet/common"
	"github.com/simplege/gamenet/config"
	"github.com/simplege/gamenet/util"
)

type Datagram struct {
	Addr *net.UDPAddr
	Data []byte
}

// DatagramSocket is a UDP socket with a single background reader, so
// datagrams are polled in arrival order without ever blocking the caller.
type DatagramSocket struct {
	conn  *net.UDPConn
	inbox *util.RingBuffer

	sync.Mutex
	cause   error
	dropped uint64
}

// ListenDatagram binds a socket of network "udp", "udp4" or "udp6". A "udp"
// socket on an unspecified address accepts both families, so a host bound to
// 0.0.0.0 serves IPv6 clients as well.
func ListenDatagram(network, addr string) (*DatagramSocket, error) {
	switch network {
	case "udp", "udp4", "udp6":
	default:
		return nil, fmt.Errorf("invalid network %s", network)
	}
	udpAddr, err := net.ResolveUDPAddr(network, addr)
	if err != nil {
		return nil, fmt.Errorf("invalid address %s %s", addr, err)
	}
	conn, err := net.ListenUDP(network, udpAddr)
	if err != nil {
		return nil, &common.TransportError{Op: "listen", Err: err}
	}
	s := &DatagramSocket{
		conn:  conn,
		inbox: util.NewRingBuffer(config.QueueSize),
	}
	go s.loopReceive()
	return s, nil
}

func (s *DatagramSocket) loopReceive() {
	defer s.inbox.Dispose()

	buf := make([]byte, config.DatagramMaximumSize)
	for {
		n, addr, err := s.conn.ReadFromUDP(buf)
		if err != nil {
			s.Lock()
			s.cause = err
			s.Unlock()
			return
		}
		data := make([]byte, n)
		copy(data, buf[:n])
		ok, err := s.inbox.Offer(&Datagram{Addr: addr, Data: data})
		if err != nil {
			return
		}
		if !ok {
			s.Lock()
			s.dropped++
			s.Unlock()
		}
	}
}

// Poll returns nil without error when no datagram is pending.
func (s *DatagramSocket) Poll() (*Datagram, error) {
	item, err := s.inbox.Poll(false)
	if err != nil {
		s.Lock()
		cause := s.cause
		s.Unlock()
		if cause == nil {
			cause = err
		}
		return nil, &common.TransportError{Op: "receive", Err: cause}
	}
	if item == nil {
		return nil, nil
	}
	return item.(*Datagram), nil
}

func (s *DatagramSocket) SendTo(addr *net.UDPAddr, data []byte) error {
	if len(data) > config.DatagramMaximumSize {
		return &common.TransportError{Op: "send", Err: fmt.Errorf("datagram too large %d", len(data))}
	}
	_, err := s.conn.WriteToUDP(data, addr)
	if err != nil {
		return &common.TransportError{Op: "send", Err: err}
	}
	return nil
}

func (s *DatagramSocket) LocalAddr() *net.UDPAddr {
	return s.conn.LocalAddr().(*net.UDPAddr)
}

// Dropped counts datagrams lost because the inbox was full.
func (s *DatagramSocket) Dropped() uint64 {
	s.Lock()
	defer s.Unlock()

	return s.dropped
}

func (s *DatagramSocket) Close() error {
	err := s.conn.Close()
	if errors.Is(err, net.ErrClosed) {
		return nil
	}
	return err
}
