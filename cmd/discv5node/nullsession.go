package main

import (
	"context"
	"net"

	"github.com/ethnode/discv5/p2p/discover"
	"github.com/ethnode/discv5/p2p/enode"
)

// nullSession is a placeholder SessionService: it never receives packets
// and every send is a no-op. The real implementation -- handshake,
// WHOAREYOU challenge, AEAD session keys, UDP transport -- lives outside
// this module; wiring a real one in is how this binary would actually
// talk to the network.
type nullSession struct {
	self   *discover.NodeRecord
	events chan discover.SessionEvent
}

func newNullSession(self *discover.NodeRecord) *nullSession {
	return &nullSession{self: self, events: make(chan discover.SessionEvent)}
}

func (s *nullSession) Start(ctx context.Context) error { return nil }
func (s *nullSession) Stop(ctx context.Context) error   { close(s.events); return nil }

func (s *nullSession) SendRequest(dest *discover.NodeRecord, req discover.Message) error {
	return nil
}

func (s *nullSession) SendResponse(src net.UDPAddr, srcID enode.NodeID, resp discover.Message) error {
	return nil
}

func (s *nullSession) SendRequestUnknownEnr(src net.UDPAddr, id enode.NodeID, req discover.Message) error {
	return nil
}

func (s *nullSession) SendWhoAreYou(src net.UDPAddr, srcID enode.NodeID, enrSeq uint64, record *discover.NodeRecord, authTag [12]byte) error {
	return nil
}

func (s *nullSession) UpdateENR(record *discover.NodeRecord) error { return nil }
func (s *nullSession) ENR() *discover.NodeRecord                   { return s.self }
func (s *nullSession) SetENR(record *discover.NodeRecord)          { s.self = record }
func (s *nullSession) Events() <-chan discover.SessionEvent        { return s.events }
