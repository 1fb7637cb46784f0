package network

import (
	"errors"
	"net"
	"sync"

	"github.com/simplege/gamenet/common"
	"github.com/simplege/gamenet/config"
	"github.com/simplege/gamenet/util"
)

// ControlChannel turns a blocking Client into a polled one, frames are read
// on a background goroutine and handed over through a ring buffer.
type ControlChannel struct {
	client Client
	inbox  *util.RingBuffer

	sync.Mutex
	cause  error
	closed bool
}

func NewControlChannel(client Client) *ControlChannel {
	cc := &ControlChannel{
		client: client,
		inbox:  util.NewRingBuffer(64),
	}
	go cc.loopReceive()
	return cc
}

func (cc *ControlChannel) loopReceive() {
	defer cc.inbox.Dispose()

	for {
		msg, err := cc.client.Receive()
		if err != nil {
			cc.fail(err)
			return
		}
		ok, err := cc.inbox.Offer(msg.Data)
		if err != nil {
			cc.fail(err)
			return
		}
		if !ok {
			cc.fail(errors.New("control inbox overflow"))
			cc.client.Close()
			return
		}
	}
}

func (cc *ControlChannel) fail(err error) {
	cc.Lock()
	defer cc.Unlock()

	if cc.cause == nil {
		cc.cause = err
	}
}

func (cc *ControlChannel) Err() error {
	cc.Lock()
	defer cc.Unlock()

	return cc.cause
}

// Poll returns the next frame, nil without error when nothing is pending, or
// a TransportError once the connection is gone and all frames were consumed.
func (cc *ControlChannel) Poll() ([]byte, error) {
	item, err := cc.inbox.Poll(false)
	if err != nil {
		cause := cc.Err()
		if cause == nil {
			cause = err
		}
		return nil, &common.TransportError{Op: "receive", Err: cause}
	}
	if item == nil {
		return nil, nil
	}
	return item.([]byte), nil
}

func (cc *ControlChannel) Send(data []byte) error {
	if len(data) > config.ControlMaximumSize {
		return &common.TransportError{Op: "send", Err: errors.New("control message too large")}
	}
	err := cc.client.Send(data)
	if err != nil {
		return &common.TransportError{Op: "send", Err: err}
	}
	return nil
}

func (cc *ControlChannel) RemoteAddr() net.Addr {
	return cc.client.RemoteAddr()
}

func (cc *ControlChannel) Close() error {
	cc.Lock()
	if cc.closed {
		cc.Unlock()
		return nil
	}
	cc.closed = true
	cc.Unlock()

	cc.fail(net.ErrClosed)
	return cc.client.Close()
}
