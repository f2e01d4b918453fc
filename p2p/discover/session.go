package discover

import (
	"context"
	"net"

	"github.com/ethnode/discv5/p2p/enode"
)

// MessageKind discriminates the handful of message types the core
// understands. The wire codec that produces and consumes these is out of
// scope here: it lives in the session service.
type MessageKind uint8

const (
	KindPing MessageKind = iota
	KindPong
	KindFindNode
	KindNodes
)

func (k MessageKind) String() string {
	switch k {
	case KindPing:
		return "PING"
	case KindPong:
		return "PONG"
	case KindFindNode:
		return "FINDNODE"
	case KindNodes:
		return "NODES"
	default:
		return "UNKNOWN"
	}
}

// Message is a discriminated session-layer payload. The core never
// constructs these from raw bytes; the session service decodes them.
type Message interface {
	Kind() MessageKind
	RequestID() uint64
}

// Ping asks the recipient to prove liveness and report what it knows.
type Ping struct {
	ReqID  uint64
	ENRSeq uint64
}

func (m *Ping) Kind() MessageKind  { return KindPing }
func (m *Ping) RequestID() uint64  { return m.ReqID }

// Pong answers a Ping, reporting the sender's own seq and the caller's
// observed external address.
type Pong struct {
	ReqID  uint64
	ENRSeq uint64
	ToIP   net.IP
	ToPort uint16
}

func (m *Pong) Kind() MessageKind { return KindPong }
func (m *Pong) RequestID() uint64 { return m.ReqID }

// FindNode asks the recipient for the records it holds at the given
// log2-distance from itself (distance 0 means "your own record").
type FindNode struct {
	ReqID    uint64
	Distance int
}

func (m *FindNode) Kind() MessageKind { return KindFindNode }
func (m *FindNode) RequestID() uint64 { return m.ReqID }

// Nodes answers a FindNode. A single logical answer may be split across
// Total packets sharing the same ReqID.
type Nodes struct {
	ReqID   uint64
	Total   int
	Records []*NodeRecord
}

func (m *Nodes) Kind() MessageKind { return KindNodes }
func (m *Nodes) RequestID() uint64 { return m.ReqID }

// SessionEvent is the discriminated union of events the session service
// delivers to the core. Using a closed Go interface with a type switch
// replaces the "ambient event emitter with dynamic event strings" pattern:
// there is no dispatch by string anywhere in the reactor.
type SessionEvent interface{ sessionEvent() }

// EventEstablished fires once a session with a peer is up and its ENR
// known.
type EventEstablished struct{ Record *NodeRecord }

// EventMessage fires for every decrypted inbound message, request or
// response alike.
type EventMessage struct {
	SrcID enode.NodeID
	Src   net.UDPAddr
	Msg   Message
}

// EventWhoAreYouRequest fires when the session layer needs the core's best
// known ENR for srcID to answer a WHOAREYOU challenge.
type EventWhoAreYouRequest struct {
	SrcID   enode.NodeID
	Src     net.UDPAddr
	AuthTag [12]byte
}

// EventRequestFailed fires when a previously sent request definitively
// failed (timeout or session drop).
type EventRequestFailed struct {
	SrcID enode.NodeID
	ReqID uint64
}

func (EventEstablished) sessionEvent()      {}
func (EventMessage) sessionEvent()          {}
func (EventWhoAreYouRequest) sessionEvent() {}
func (EventRequestFailed) sessionEvent()    {}

// SessionService is the external collaborator the core drives: the
// handshake, WHOAREYOU challenge, AEAD sealing, and UDP transport all live
// behind this interface and are out of scope for this module.
type SessionService interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error

	// SendRequest sends req to dest and registers it for correlation. It
	// may fail synchronously, in which case no request is outstanding.
	SendRequest(dest *NodeRecord, req Message) error

	// SendResponse sends resp to src as a reply correlated by the
	// session/transport layer, addressed to srcID.
	SendResponse(src net.UDPAddr, srcID enode.NodeID, resp Message) error

	// SendRequestUnknownEnr sends req to a peer whose ENR is not yet
	// (fully) known, addressed only by transport endpoint and claimed id.
	SendRequestUnknownEnr(src net.UDPAddr, id enode.NodeID, req Message) error

	// SendWhoAreYou answers a WHOAREYOU challenge with the core's best
	// knowledge of srcID's ENR (record may be nil).
	SendWhoAreYou(src net.UDPAddr, srcID enode.NodeID, enrSeq uint64, record *NodeRecord, authTag [12]byte) error

	// UpdateENR informs the session layer of a newly observed record,
	// refreshing any live session for that peer.
	UpdateENR(record *NodeRecord) error

	// ENR returns the session layer's current local record.
	ENR() *NodeRecord

	// SetENR replaces the session layer's local record.
	SetENR(record *NodeRecord)

	// Events returns the channel of session events. It is closed when the
	// session service shuts down.
	Events() <-chan SessionEvent
}
