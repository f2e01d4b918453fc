package discover

import "time"

const (
	// BucketSize is k, the maximum number of entries per distance shell.
	BucketSize = 16

	// NumBuckets is the number of distance shells (log2-distance 1..256).
	NumBuckets = 256

	// DefaultAlpha is the default lookup parallelism.
	DefaultAlpha = 3

	// DefaultNumResults is the number of closest nodes a lookup converges to.
	DefaultNumResults = 16

	// PingInterval is the keep-alive period for a connected peer.
	PingInterval = 300 * time.Second

	// DefaultIPVoteTimeout is the TTL applied to ingested IP votes.
	DefaultIPVoteTimeout = 10 * time.Minute

	// MaxRecordSize is the maximum encoded size of a single ENR (EIP-778).
	MaxRecordSize = 300

	// MaxPacketSize is the maximum UDP datagram the session layer will send.
	MaxPacketSize = 1280

	// packetOverhead accounts for the session tag, auth tag, rpc id, total
	// field and AEAD expansion the session layer adds around a NODES payload.
	packetOverhead = 92

	// MaxNodesPackets is the maximum number of NODES packets accepted for a
	// single outstanding request, regardless of the declared total.
	MaxNodesPackets = 5
)

// NodesPerPacket is the number of ENRs that fit in one NODES packet given
// MaxPacketSize, packetOverhead and MaxRecordSize.
func NodesPerPacket() int {
	return (MaxPacketSize - packetOverhead) / MaxRecordSize
}
