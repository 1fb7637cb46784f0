package common

type HandshakeRequest struct {
	GameId string
}

type HandshakeResponse struct {
	PeerId  PeerId
	UdpPort int
}

// StateDatagram carries the states owned by Sender, client to host.
type StateDatagram struct {
	Sender PeerId
	States []EntityState
}

// SnapshotDatagram carries one world snapshot, host to client.
type SnapshotDatagram struct {
	Sender   PeerId
	Snapshot WorldSnapshot
}

type DiscoveryRequest struct {
	GameId string
	Nonce  [16]byte
}

type DiscoveryAnnouncement struct {
	GameId   string
	Name     string
	Address  string `msgpack:"-"`
	TcpPort  int
	UdpPort  int
	Metadata map[string]string
}
