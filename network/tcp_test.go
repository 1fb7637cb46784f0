package network

import (
	"context"
	"testing"
	"time"

	"github.com/simplege/gamenet/common"
	"github.com/simplege/gamenet/logger"
	"github.com/stretchr/testify/require"
)

func TestTcp(t *testing.T) {
	require := require.New(t)

	serverTrans, err := NewTcpServer("127.0.0.1:0")
	require.Nil(err)
	require.NotNil(serverTrans)
	err = serverTrans.Listen()
	require.Nil(err)
	defer serverTrans.Close()

	wait := make(chan *TransportMessage)
	go func() {
		server, err := serverTrans.Accept(context.Background())
		if err != nil {
			close(wait)
			return
		}
		msg, _ := server.Receive()
		wait <- msg
	}()

	clientTrans, err := NewTcpClient(serverTrans.Addr().String())
	require.Nil(err)
	client, err := clientTrans.Dial(context.Background())
	require.Nil(err)
	require.NotNil(client)
	defer client.Close()
	err = client.Send([]byte("hello host"))
	require.Nil(err)
	msg := <-wait
	require.NotNil(msg)
	require.Equal(uint8(TransportMessageVersion), msg.Version)
	require.Equal("hello host", string(msg.Data))

	err = client.Send(nil)
	require.NotNil(err)
	err = client.Send(make([]byte, TransportMessageMaxSize+1))
	require.NotNil(err)

	_, err = NewTcpClient("not an address")
	require.NotNil(err)
}

func TestListenerControlChannel(t *testing.T) {
	require := require.New(t)

	l, err := Listen("127.0.0.1:0", logger.Discard())
	require.Nil(err)
	defer l.Close()

	cc, err := l.Poll()
	require.Nil(err)
	require.Nil(cc)

	clientTrans, err := NewTcpClient(l.Addr().String())
	require.Nil(err)
	client, err := clientTrans.Dial(context.Background())
	require.Nil(err)
	remote := NewControlChannel(client)

	cc = pollChannel(t, l)
	require.NotNil(cc)

	data, err := cc.Poll()
	require.Nil(err)
	require.Nil(data)

	err = remote.Send([]byte("first"))
	require.Nil(err)
	err = remote.Send([]byte("second"))
	require.Nil(err)
	require.Equal("first", string(pollFrame(t, cc)))
	require.Equal("second", string(pollFrame(t, cc)))

	err = cc.Send([]byte("reply"))
	require.Nil(err)
	require.Equal("reply", string(pollFrame(t, remote)))

	remote.Close()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		_, err = cc.Poll()
		if err != nil {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	require.NotNil(err)
	var te *common.TransportError
	require.ErrorAs(err, &te)
	cc.Close()
}

func pollChannel(t *testing.T, l *Listener) *ControlChannel {
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		cc, err := l.Poll()
		require.Nil(t, err)
		if cc != nil {
			return cc
		}
		time.Sleep(5 * time.Millisecond)
	}
	return nil
}

func pollFrame(t *testing.T, cc *ControlChannel) []byte {
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		data, err := cc.Poll()
		require.Nil(t, err)
		if data != nil {
			return data
		}
		time.Sleep(5 * time.Millisecond)
	}
	return nil
}
