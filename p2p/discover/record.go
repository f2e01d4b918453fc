// Package discover implements the protocol-level service layer of a
// discv5 node: the Kademlia routing table, the iterative lookup engine,
// and the reactor that correlates requests and responses against an
// external, asynchronous session service.
package discover

import (
	"net"

	"github.com/ethnode/discv5/p2p/enode"
	"github.com/ethnode/discv5/p2p/enr"
)

// NodeRecord is a routing-table-level view of a signed ENR: the fields the
// core needs to route and dial, plus (optionally) the underlying signed
// record for callers that need to hand it to the session/wire layer.
type NodeRecord struct {
	ID      enode.NodeID
	Seq     uint64
	IP      net.IP
	UDPPort uint16

	raw *enr.Record
}

// NewNodeRecord builds a NodeRecord directly, without an underlying signed
// enr.Record. This is the constructor tests reach for; production code
// normally goes through FromENR once a signed record has been verified by
// the (out-of-scope) wire codec.
func NewNodeRecord(id enode.NodeID, seq uint64, ip net.IP, udpPort uint16) *NodeRecord {
	return &NodeRecord{ID: id, Seq: seq, IP: ip, UDPPort: udpPort}
}

// FromENR derives a NodeRecord from a verified enr.Record.
func FromENR(r *enr.Record) *NodeRecord {
	id := enode.NodeID(r.NodeID())
	return &NodeRecord{
		ID:      id,
		Seq:     r.Seq,
		IP:      enr.IP(r),
		UDPPort: enr.UDP(r),
		raw:     r,
	}
}

// Raw returns the underlying signed enr.Record, or nil if this NodeRecord
// was constructed directly (as in most unit tests).
func (n *NodeRecord) Raw() *enr.Record { return n.raw }

// Addr returns the UDP endpoint described by the record.
func (n *NodeRecord) Addr() net.UDPAddr {
	return net.UDPAddr{IP: n.IP, Port: int(n.UDPPort)}
}
