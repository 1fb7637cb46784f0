package config

import (
	"fmt"
	"os"
	"time"

	"github.com/pelletier/go-toml"
)

type Custom struct {
	Game struct {
		Id       string `toml:"id"`
		TickRate int    `toml:"tick-rate"`
	} `toml:"game"`
	Host struct {
		Listen          string `toml:"listen"`
		Name            string `toml:"name"`
		TcpPort         int    `toml:"tcp-port"`
		UdpPort         int    `toml:"udp-port"`
		LivenessTimeout int    `toml:"liveness-timeout"`
	} `toml:"host"`
	Client struct {
		HandshakeTimeout int `toml:"handshake-timeout"`
		LivenessTimeout  int `toml:"liveness-timeout"`
	} `toml:"client"`
	Discovery struct {
		Port     int               `toml:"port"`
		Window   int               `toml:"window"`
		Interval int               `toml:"interval"`
		Hidden   bool              `toml:"hidden"`
		Targets  []string          `toml:"targets"`
		Metadata map[string]string `toml:"metadata"`
	} `toml:"discovery"`
	Codec struct {
		Compress bool `toml:"compress"`
	} `toml:"codec"`
	Log struct {
		Level   int    `toml:"level"`
		Filter  string `toml:"filter"`
		Limiter int    `toml:"limiter"`
	} `toml:"log"`
	RPC struct {
		Port   int  `toml:"port"`
		Metric bool `toml:"metric"`
	} `toml:"rpc"`
}

func Initialize(file string) (*Custom, error) {
	f, err := os.ReadFile(file)
	if err != nil {
		return nil, err
	}
	var config Custom
	err = toml.Unmarshal(f, &config)
	if err != nil {
		return nil, err
	}
	return &config, config.fill()
}

// Default returns the configuration used when no file is given.
func Default() *Custom {
	var config Custom
	err := config.fill()
	if err != nil {
		panic(err)
	}
	return &config
}

func (c *Custom) fill() error {
	if c.Game.Id == "" {
		c.Game.Id = DefaultGameId
	}
	if c.Game.TickRate == 0 {
		c.Game.TickRate = DefaultTickRate
	}
	if c.Host.Listen == "" {
		c.Host.Listen = "0.0.0.0"
	}
	if c.Host.Name == "" {
		name, _ := os.Hostname()
		c.Host.Name = name
	}
	if c.Host.TcpPort == 0 {
		c.Host.TcpPort = DefaultTcpPort
	}
	if c.Host.LivenessTimeout == 0 {
		c.Host.LivenessTimeout = int(DefaultLivenessTimeout / time.Millisecond)
	}
	if c.Client.HandshakeTimeout == 0 {
		c.Client.HandshakeTimeout = int(DefaultHandshakeTimeout / time.Millisecond)
	}
	if c.Client.LivenessTimeout == 0 {
		c.Client.LivenessTimeout = int(DefaultLivenessTimeout / time.Millisecond)
	}
	if c.Log.Level == 0 {
		c.Log.Level = 2
	}
	if c.Discovery.Port == 0 {
		c.Discovery.Port = DefaultDiscoveryPort
	}
	if c.Discovery.Window == 0 {
		c.Discovery.Window = int(DefaultDiscoveryWindow / time.Millisecond)
	}
	if c.Discovery.Interval == 0 {
		c.Discovery.Interval = int(DefaultDiscoveryInterval / time.Millisecond)
	}
	if len(c.Discovery.Targets) == 0 {
		port := c.Discovery.Port
		if port == EphemeralPort {
			port = DefaultDiscoveryPort
		}
		c.Discovery.Targets = []string{fmt.Sprintf("255.255.255.255:%d", port)}
	}
	// a zero port in the file means the default, -1 asks the system for one
	if c.Host.TcpPort == EphemeralPort {
		c.Host.TcpPort = 0
	}
	if c.Host.UdpPort == EphemeralPort {
		c.Host.UdpPort = 0
	}
	if c.Discovery.Port == EphemeralPort {
		c.Discovery.Port = 0
	}
	return c.validate()
}

func (c *Custom) validate() error {
	if c.Game.TickRate < 0 || c.Game.TickRate > 1000 {
		return fmt.Errorf("invalid tick rate %d", c.Game.TickRate)
	}
	for _, p := range []int{c.Host.TcpPort, c.Host.UdpPort, c.Discovery.Port, c.RPC.Port} {
		if p < 0 || p > 65535 {
			return fmt.Errorf("invalid port %d", p)
		}
	}
	for _, d := range []int{c.Host.LivenessTimeout, c.Client.HandshakeTimeout, c.Client.LivenessTimeout, c.Discovery.Window, c.Discovery.Interval} {
		if d < 0 {
			return fmt.Errorf("invalid duration %dms", d)
		}
	}
	return nil
}

// TickInterval is zero when the tick rate is unset, which Loop rejects.
func (c *Custom) TickInterval() time.Duration {
	if c.Game.TickRate <= 0 {
		return 0
	}
	return time.Second / time.Duration(c.Game.TickRate)
}

func (c *Custom) HostLivenessTimeout() time.Duration {
	return time.Duration(c.Host.LivenessTimeout) * time.Millisecond
}

func (c *Custom) ClientLivenessTimeout() time.Duration {
	return time.Duration(c.Client.LivenessTimeout) * time.Millisecond
}

func (c *Custom) HandshakeTimeout() time.Duration {
	return time.Duration(c.Client.HandshakeTimeout) * time.Millisecond
}

func (c *Custom) DiscoveryWindow() time.Duration {
	return time.Duration(c.Discovery.Window) * time.Millisecond
}

func (c *Custom) DiscoveryInterval() time.Duration {
	return time.Duration(c.Discovery.Interval) * time.Millisecond
}
