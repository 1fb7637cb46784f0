package logger

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLogger(t *testing.T) {
	assert := assert.New(t)

	l := Discard()
	out := l.filterOutput("hello from host %d", time.Now().UnixNano())
	assert.Contains(out, "host")

	err := l.SetFilter("snapshot")
	assert.Nil(err)
	out = l.filterOutput("hello from host %d", time.Now().UnixNano())
	assert.NotContains(out, "host")
	out = l.filterOutput("Snapshot from host %d", time.Now().UnixNano())
	assert.NotContains(out, "host")
	out = l.filterOutput("snapshot from host %d", time.Now().UnixNano())
	assert.Contains(out, "host")

	err = l.SetFilter("(?i)snapshot|Peer")
	assert.Nil(err)
	out = l.filterOutput("Snapshot from host %d", time.Now().UnixNano())
	assert.Contains(out, "host")
	out = l.filterOutput("Peer joined host %d", time.Now().UnixNano())
	assert.Contains(out, "host")
	out = l.filterOutput("handshake from host %d", time.Now().UnixNano())
	assert.NotContains(out, "host")

	err = l.SetFilter("(")
	assert.NotNil(err)

	la := l.limiterAvailable("hello from host")
	assert.True(la)
	l.SetLimiter(10)
	for i := 0; i < 10; i++ {
		la := l.limiterAvailable("hello from host")
		assert.True(la)
	}
	la = l.limiterAvailable("hello from host")
	assert.False(la)
	la = l.limiterAvailable("hello from host again")
	assert.True(la)
}

func TestLoggerTagged(t *testing.T) {
	assert := assert.New(t)

	var buf bytes.Buffer
	root := NewWithWriter(&buf, VERBOSE)
	host := root.Tagged("HOST")

	host.Verbosef("peer %s joined", "P1")
	assert.Contains(buf.String(), "[HOST] peer P1 joined")

	buf.Reset()
	host.Debugf("datagram %d", 7)
	assert.Equal("", buf.String())

	err := root.SetFilter("CLIENT")
	assert.Nil(err)
	host.Verbosef("peer %s left", "P1")
	assert.Equal("", buf.String())
	root.Tagged("CLIENT").Errorf("timeout")
	assert.Contains(buf.String(), "[CLIENT] timeout")
}
