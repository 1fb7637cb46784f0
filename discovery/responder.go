package discovery

import (
	"encoding/binary"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/VictoriaMetrics/fastcache"
	"github.com/simplege/gamenet/common"
	"github.com/simplege/gamenet/config"
	"github.com/simplege/gamenet/logger"
	"github.com/simplege/gamenet/network"
)

// Responder answers discovery requests for one game on the discovery port.
// It is polled by its owner, usually once per host tick.
type Responder struct {
	socket       *network.DatagramSocket
	codec        common.Codec
	log          *logger.Logger
	listen       string
	gameId       string
	announcement []byte
	window       time.Duration
	replies      *confirmMap
}

func NewResponder(custom *config.Custom, codec common.Codec, log *logger.Logger) *Responder {
	return &Responder{
		codec:   codec,
		log:     log.Tagged("RESPONDER"),
		listen:  net.JoinHostPort(custom.Host.Listen, strconv.Itoa(custom.Discovery.Port)),
		gameId:  custom.Game.Id,
		window:  custom.DiscoveryInterval() / 2,
		replies: &confirmMap{cache: fastcache.New(1024 * 1024)},
	}
}

func (r *Responder) Listen(ann *common.DiscoveryAnnouncement) error {
	if ann.GameId != r.gameId {
		return fmt.Errorf("announcement game %s mismatch %s", ann.GameId, r.gameId)
	}
	data, err := r.codec.Encode(ann)
	if err != nil {
		return err
	}
	socket, err := network.ListenDatagram("udp4", r.listen)
	if err != nil {
		return err
	}
	r.socket, r.announcement = socket, data
	r.log.Printf("answering discovery for %s on %s\n", r.gameId, socket.LocalAddr().String())
	return nil
}

func (r *Responder) Addr() *net.UDPAddr {
	return r.socket.LocalAddr()
}

// Poll answers every pending request and returns how many replies were sent.
func (r *Responder) Poll(now time.Time) (int, error) {
	var answered int
	for {
		d, err := r.socket.Poll()
		if err != nil || d == nil {
			return answered, err
		}
		var req common.DiscoveryRequest
		err = r.codec.Decode(d.Data, &req)
		if err != nil {
			r.log.Debugf("discovery request from %s %s\n", d.Addr.String(), err.Error())
			continue
		}
		if req.GameId != r.gameId {
			r.log.Debugf("ignore discovery for %s from %s\n", req.GameId, d.Addr.String())
			continue
		}
		key := append([]byte(d.Addr.String()), req.Nonce[:]...)
		if r.replies.contains(key, now, r.window) {
			continue
		}
		err = r.socket.SendTo(d.Addr, r.announcement)
		if err != nil {
			r.log.Verbosef("discovery reply to %s error %s\n", d.Addr.String(), err.Error())
			continue
		}
		r.replies.store(key, now)
		answered++
	}
}

func (r *Responder) Close() error {
	if r.socket == nil {
		return nil
	}
	return r.socket.Close()
}

type confirmMap struct {
	cache *fastcache.Cache
}

func (m *confirmMap) contains(key []byte, now time.Time, duration time.Duration) bool {
	val := m.cache.Get(nil, key)
	if len(val) == 8 {
		ts := time.Unix(0, int64(binary.BigEndian.Uint64(val)))
		return ts.Add(duration).After(now)
	}
	return false
}

func (m *confirmMap) store(key []byte, ts time.Time) {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, uint64(ts.UnixNano()))
	m.cache.Set(key, buf)
}
