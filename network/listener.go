package network

import (
	"context"
	"errors"
	"net"
	"sync/atomic"
	"time"

	"github.com/simplege/gamenet/common"
	"github.com/simplege/gamenet/config"
	"github.com/simplege/gamenet/logger"
	"github.com/simplege/gamenet/util"
)

// Listener accepts control connections in the background, the owner picks
// them up with Poll.
type Listener struct {
	transport Transport
	accepted  *util.RingBuffer
	log       *logger.Logger
	closing   int32
}

func Listen(addr string, log *logger.Logger) (*Listener, error) {
	transport, err := NewTcpServer(addr)
	if err != nil {
		return nil, err
	}
	err = transport.Listen()
	if err != nil {
		return nil, &common.TransportError{Op: "listen", Err: err}
	}
	l := &Listener{
		transport: transport,
		accepted:  util.NewRingBuffer(config.QueueSize),
		log:       log,
	}
	go l.loopAccept()
	return l, nil
}

func (l *Listener) Addr() *net.TCPAddr {
	return l.transport.Addr().(*net.TCPAddr)
}

func (l *Listener) loopAccept() {
	defer l.accepted.Dispose()

	for atomic.LoadInt32(&l.closing) == 0 {
		c, err := l.transport.Accept(context.Background())
		if errors.Is(err, net.ErrClosed) {
			return
		} else if err != nil {
			l.log.Verbosef("accept error %s\n", err.Error())
			time.Sleep(10 * time.Millisecond)
			continue
		}
		l.log.Debugf("accept %s\n", c.RemoteAddr().String())
		ok, err := l.accepted.Offer(NewControlChannel(c))
		if err != nil || !ok {
			l.log.Verbosef("accept queue full, drop %s\n", c.RemoteAddr().String())
			c.Close()
		}
	}
}

func (l *Listener) Poll() (*ControlChannel, error) {
	item, err := l.accepted.Poll(false)
	if err != nil {
		return nil, &common.TransportError{Op: "accept", Err: err}
	}
	if item == nil {
		return nil, nil
	}
	return item.(*ControlChannel), nil
}

func (l *Listener) Close() error {
	atomic.StoreInt32(&l.closing, 1)
	err := l.transport.Close()
	for {
		item, _ := l.accepted.Poll(false)
		if item == nil {
			break
		}
		item.(*ControlChannel).Close()
	}
	return err
}
