package config

import "time"

const (
	BuildVersion = "v0.1.0-BUILD_VERSION"

	DefaultGameId            = "simpleGE Game"
	DefaultTickRate          = 30
	DefaultTcpPort           = 12345
	DefaultDiscoveryPort     = 12346
	EphemeralPort            = -1
	DefaultLivenessTimeout   = 5 * time.Second
	DefaultHandshakeTimeout  = 7 * time.Second
	DefaultDiscoveryWindow   = 3 * time.Second
	DefaultDiscoveryInterval = 1 * time.Second

	DatagramMaximumSize = 65507
	ControlMaximumSize  = 64 * 1024
	QueueSize           = 1024
)
