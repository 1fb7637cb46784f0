package network

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"net"
	"time"
)

type TcpClient struct {
	conn net.Conn
}

type TcpTransport struct {
	addr     string
	listener net.Listener
}

func NewTcpServer(addr string) (*TcpTransport, error) {
	return &TcpTransport{
		addr: addr,
	}, nil
}

func NewTcpClient(addr string) (*TcpTransport, error) {
	if _, err := net.ResolveTCPAddr("tcp", addr); err != nil {
		return nil, fmt.Errorf("invalid address %s %s", addr, err)
	}
	return &TcpTransport{
		addr: addr,
	}, nil
}

func (t *TcpTransport) Dial(ctx context.Context) (Client, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", t.addr)
	if err != nil {
		return nil, err
	}
	return &TcpClient{
		conn: conn,
	}, nil
}

func (t *TcpTransport) Listen() error {
	l, err := net.Listen("tcp", t.addr)
	if err != nil {
		return err
	}
	t.listener = l
	return nil
}

func (t *TcpTransport) Addr() net.Addr {
	if t.listener == nil {
		return nil
	}
	return t.listener.Addr()
}

func (t *TcpTransport) Accept(ctx context.Context) (Client, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	conn, err := t.listener.Accept()
	if err != nil {
		return nil, err
	}
	return &TcpClient{
		conn: conn,
	}, nil
}

func (t *TcpTransport) Close() error {
	if t.listener == nil {
		return nil
	}
	return t.listener.Close()
}

func (c *TcpClient) LocalAddr() net.Addr {
	return c.conn.LocalAddr()
}

func (c *TcpClient) RemoteAddr() net.Addr {
	return c.conn.RemoteAddr()
}

// Receive blocks until a whole frame arrives, control channels are idle most
// of the session so there is no read deadline.
func (c *TcpClient) Receive() (*TransportMessage, error) {
	m := &TransportMessage{}
	header := make([]byte, TransportMessageHeaderSize)
	_, err := io.ReadFull(c.conn, header)
	if err != nil {
		return nil, err
	}
	m.Version = header[0]
	if m.Version != TransportMessageVersion {
		return nil, fmt.Errorf("tcp receive invalid message version %d", m.Version)
	}
	m.Size = binary.BigEndian.Uint32(header[2:])
	if m.Size > TransportMessageMaxSize {
		return nil, fmt.Errorf("tcp receive invalid message size %d", m.Size)
	}
	m.Data = make([]byte, m.Size)
	_, err = io.ReadFull(c.conn, m.Data)
	if err != nil {
		return nil, err
	}
	return m, nil
}

func (c *TcpClient) Send(data []byte) error {
	if l := len(data); l < 1 || l > TransportMessageMaxSize {
		return fmt.Errorf("tcp send invalid message size %d", l)
	}

	err := c.conn.SetWriteDeadline(time.Now().Add(WriteDeadline))
	if err != nil {
		return err
	}
	header := []byte{TransportMessageVersion, 0, 0, 0, 0, 0}
	binary.BigEndian.PutUint32(header[2:], uint32(len(data)))
	_, err = c.conn.Write(append(header, data...))
	return err
}

func (c *TcpClient) Close() error {
	return c.conn.Close()
}
