package discover

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/ethnode/discv5/log"
	"github.com/ethnode/discv5/metrics"
	"github.com/ethnode/discv5/p2p/enode"
)

// Config bundles the reactor's tunables. Zero values are replaced with the
// package defaults by New.
type Config struct {
	Alpha      int
	NumResults int
	Registry   *metrics.Registry
}

// requestEntry tracks one outstanding request awaiting a correlated
// response.
type requestEntry struct {
	msg       Message
	destID    enode.NodeID
	lookupID  uint32
	hasLookup bool
}

// partialNodes accumulates a multi-packet NODES response.
type partialNodes struct {
	received int
	distance int
	records  []*NodeRecord
}

type ipVote struct {
	ip   string
	port uint16
}

// startLookupCmd is sent over cmdCh to ask the reactor's own goroutine to
// start a new lookup; this is the one path by which an external caller
// (FindNode) injects work into the single-threaded core.
type startLookupCmd struct {
	target enode.NodeID
	seeds  []enode.NodeID
	result chan []*NodeRecord
}

// Reactor is the single-threaded dispatcher that owns the routing table,
// the set of active lookups, and all request/response correlation state.
// Every mutation of that state happens on the goroutine running run; timers
// and the session service only ever send into channels run selects on.
type Reactor struct {
	self    *NodeRecord
	table   *Table
	lookups *lookupManager
	session SessionService
	timers  *TimerSet
	ipVotes *TimeoutMap[enode.NodeID, ipVote]

	alpha      int
	numResults int

	connected        map[enode.NodeID]struct{}
	activeRequests   map[uint64]*requestEntry
	partials         map[uint64]*partialNodes
	pendingEvictions map[enode.NodeID]int // id -> bucket index being challenged

	events chan CoreEvent
	cmdCh  chan startLookupCmd

	metrics *reactorMetrics
	log     *log.Logger

	stopCh   chan struct{}
	doneCh   chan struct{}
	stopOnce sync.Once
}

// New creates a Reactor for the local node self, backed by table and
// session. table must not yet have an observer attached; New attaches the
// Reactor itself.
func New(self *NodeRecord, table *Table, session SessionService, cfg Config) *Reactor {
	alpha := cfg.Alpha
	if alpha <= 0 {
		alpha = DefaultAlpha
	}
	numResults := cfg.NumResults
	if numResults <= 0 {
		numResults = DefaultNumResults
	}
	r := &Reactor{
		self:             self,
		table:            table,
		lookups:          newLookupManager(),
		session:          session,
		timers:           NewTimerSet(),
		ipVotes:          NewTimeoutMap[enode.NodeID, ipVote](DefaultIPVoteTimeout),
		alpha:            alpha,
		numResults:       numResults,
		connected:        make(map[enode.NodeID]struct{}),
		activeRequests:   make(map[uint64]*requestEntry),
		partials:         make(map[uint64]*partialNodes),
		pendingEvictions: make(map[enode.NodeID]int),
		events:           make(chan CoreEvent, 256),
		cmdCh:            make(chan startLookupCmd),
		metrics:          newReactorMetrics(cfg.Registry),
		log:              log.Default().Module("reactor"),
		stopCh:           make(chan struct{}),
		doneCh:           make(chan struct{}),
	}
	table.SetObserver(r)
	return r
}

// Events returns the channel of outward-facing core events. It is closed
// once run exits.
func (r *Reactor) Events() <-chan CoreEvent { return r.events }

// Start starts the session service and launches the reactor's event loop in
// a new goroutine.
func (r *Reactor) Start(ctx context.Context) error {
	if err := r.session.Start(ctx); err != nil {
		return fmt.Errorf("reactor: starting session service: %w", err)
	}
	go r.run()
	return nil
}

// Stop shuts the reactor down. It is idempotent and blocks until the event
// loop has fully exited.
func (r *Reactor) Stop() {
	r.stopOnce.Do(func() { close(r.stopCh) })
	<-r.doneCh
}

// run is the reactor's single-threaded event loop.
func (r *Reactor) run() {
	defer close(r.doneCh)
	sessionEvents := r.session.Events()
	for {
		select {
		case ev, ok := <-sessionEvents:
			if !ok {
				sessionEvents = nil
				continue
			}
			r.dispatch(ev)
		case id := <-r.timers.C():
			r.onPingTimer(id)
		case cmd := <-r.cmdCh:
			r.startLookup(cmd)
		case <-r.stopCh:
			r.shutdown()
			return
		}
		r.pumpLookups()
	}
}

func (r *Reactor) shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	r.lookups.clear()
	r.activeRequests = make(map[uint64]*requestEntry)
	r.partials = make(map[uint64]*partialNodes)
	r.timers.CancelAll()
	if err := r.session.Stop(ctx); err != nil {
		r.log.Warn("session service stop failed", "err", err)
	}
	close(r.events)
}

func (r *Reactor) emit(ev CoreEvent) {
	select {
	case r.events <- ev:
	default:
		r.log.Warn("event channel full, dropping event")
	}
}

func (r *Reactor) dispatch(ev SessionEvent) {
	switch e := ev.(type) {
	case EventEstablished:
		r.onEstablished(e.Record)
	case EventMessage:
		r.onMessage(e)
	case EventWhoAreYouRequest:
		r.onWhoAreYouRequest(e.SrcID, e.Src, e.AuthTag)
	case EventRequestFailed:
		r.onRequestFailed(e.SrcID, e.ReqID)
	default:
		r.log.Warn("unrecognized session event", "type", fmt.Sprintf("%T", ev))
	}
}

func (r *Reactor) onMessage(e EventMessage) {
	r.metrics.messagesReceived.Inc()
	switch e.Msg.Kind() {
	case KindPing:
		r.handleIncomingPing(e.SrcID, e.Src, e.Msg.(*Ping))
	case KindFindNode:
		r.handleIncomingFindNode(e.SrcID, e.Src, e.Msg.(*FindNode))
	case KindPong:
		r.handleIncomingPong(e.SrcID, e.Msg.(*Pong))
	case KindNodes:
		r.handleIncomingNodes(e.SrcID, e.Msg.(*Nodes))
	}
}

// expectedResponseKind maps a request kind to the response kind it demands.
func expectedResponseKind(k MessageKind) MessageKind {
	switch k {
	case KindPing:
		return KindPong
	case KindFindNode:
		return KindNodes
	default:
		return k
	}
}

// matchResponse looks up the outstanding request for reqID and verifies the
// incoming response kind matches what that request expects. On a kind
// mismatch the response is discarded and the registry entry cleared: a
// PONG never satisfies a FINDNODE and vice versa.
func (r *Reactor) matchResponse(reqID uint64, gotKind MessageKind) (*requestEntry, bool) {
	entry, ok := r.activeRequests[reqID]
	if !ok {
		return nil, false
	}
	if expectedResponseKind(entry.msg.Kind()) != gotKind {
		r.metrics.requestsMismatched.Inc()
		r.log.Warn("response kind mismatch, discarding", "want", expectedResponseKind(entry.msg.Kind()), "got", gotKind)
		delete(r.activeRequests, reqID)
		return nil, false
	}
	r.metrics.requestsMatched.Inc()
	return entry, true
}

// --- inbound requests ------------------------------------------------------

func (r *Reactor) handleIncomingPing(srcID enode.NodeID, src net.UDPAddr, ping *Ping) {
	known := r.table.GetValue(srcID)
	if known == nil || known.Seq < ping.ENRSeq {
		req := &FindNode{ReqID: r.newReqID(), Distance: 0}
		if err := r.session.SendRequestUnknownEnr(src, srcID, req); err != nil {
			r.log.Warn("failed to request updated ENR", "peer", srcID, "err", err)
		} else {
			r.activeRequests[req.ReqID] = &requestEntry{msg: req, destID: srcID}
			r.metrics.requestsSent.Inc()
			r.metrics.messagesSent.Inc()
		}
	}
	pong := &Pong{ReqID: ping.ReqID, ENRSeq: r.self.Seq, ToIP: src.IP, ToPort: uint16(src.Port)}
	if err := r.session.SendResponse(src, srcID, pong); err != nil {
		r.log.Warn("failed to send pong", "peer", srcID, "err", err)
	} else {
		r.metrics.messagesSent.Inc()
	}
}

func (r *Reactor) handleIncomingFindNode(srcID enode.NodeID, src net.UDPAddr, fn *FindNode) {
	if fn.Distance == 0 {
		nodes := &Nodes{ReqID: fn.ReqID, Total: 1, Records: []*NodeRecord{r.self}}
		if err := r.session.SendResponse(src, srcID, nodes); err != nil {
			r.log.Warn("failed to send self NODES", "peer", srcID, "err", err)
		} else {
			r.metrics.messagesSent.Inc()
		}
		return
	}
	recs := r.table.ValuesOfDistance(fn.Distance)
	perPacket := NodesPerPacket()
	if len(recs) == 0 {
		nodes := &Nodes{ReqID: fn.ReqID, Total: 1, Records: nil}
		if err := r.session.SendResponse(src, srcID, nodes); err != nil {
			r.log.Warn("failed to send empty NODES", "peer", srcID, "err", err)
		} else {
			r.metrics.messagesSent.Inc()
		}
		return
	}
	total := (len(recs) + perPacket - 1) / perPacket
	for i := 0; i < len(recs); i += perPacket {
		end := i + perPacket
		if end > len(recs) {
			end = len(recs)
		}
		nodes := &Nodes{ReqID: fn.ReqID, Total: total, Records: recs[i:end]}
		if err := r.session.SendResponse(src, srcID, nodes); err != nil {
			r.log.Warn("failed to send NODES packet", "peer", srcID, "err", err)
			return
		}
		r.metrics.messagesSent.Inc()
	}
}

// --- inbound responses ------------------------------------------------------

func (r *Reactor) handleIncomingPong(srcID enode.NodeID, pong *Pong) {
	entry, ok := r.matchResponse(pong.ReqID, KindPong)
	if !ok {
		return
	}
	delete(r.activeRequests, pong.ReqID)
	r.recordIPVote(srcID, pong.ToIP.String(), pong.ToPort)

	if known := r.table.GetValue(srcID); known != nil && known.Seq < pong.ENRSeq {
		req := &FindNode{ReqID: r.newReqID(), Distance: 0}
		if err := r.session.SendRequest(known, req); err == nil {
			r.activeRequests[req.ReqID] = &requestEntry{msg: req, destID: srcID}
			r.metrics.requestsSent.Inc()
			r.metrics.messagesSent.Inc()
		}
	}
	r.table.UpdateStatus(srcID, StatusConnected)

	if idx, ok := r.pendingEvictions[srcID]; ok {
		delete(r.pendingEvictions, srcID)
		r.table.ResolvePendingEviction(idx, true)
	}
}

func (r *Reactor) handleIncomingNodes(srcID enode.NodeID, nodes *Nodes) {
	entry, ok := r.matchResponse(nodes.ReqID, KindNodes)
	if !ok {
		return
	}
	fn, isFindNode := entry.msg.(*FindNode)
	expectedDistance := 0
	if isFindNode {
		expectedDistance = fn.Distance
	}
	filtered := filterByDistance(nodes.Records, expectedDistance, srcID)

	if nodes.Total <= 1 {
		delete(r.activeRequests, nodes.ReqID)
		r.discovered(srcID, filtered, entry)
		return
	}

	p, exists := r.partials[nodes.ReqID]
	if !exists {
		p = &partialNodes{distance: expectedDistance}
		r.partials[nodes.ReqID] = p
	}
	p.records = append(p.records, filtered...)
	p.received++

	maxPackets := nodes.Total
	if maxPackets > MaxNodesPackets {
		maxPackets = MaxNodesPackets
	}
	if p.received >= maxPackets {
		delete(r.partials, nodes.ReqID)
		delete(r.activeRequests, nodes.ReqID)
		r.discovered(srcID, p.records, entry)
	}
}

func (r *Reactor) discovered(srcID enode.NodeID, recs []*NodeRecord, entry *requestEntry) {
	var lk *Lookup
	if entry.hasLookup {
		lk, _ = r.lookups.get(entry.lookupID)
	}
	var newIDs []enode.NodeID
	for _, rec := range recs {
		if rec.ID == r.self.ID {
			continue
		}
		r.emit(EventDiscovered{Record: rec})
		if existing := r.table.GetValue(rec.ID); existing == nil || existing.Seq < rec.Seq {
			r.addEnr(rec)
			if err := r.session.UpdateENR(rec); err != nil {
				r.log.Warn("failed to update session ENR", "peer", rec.ID, "err", err)
			}
		}
		if lk != nil && lk.RememberUntrusted(rec) {
			newIDs = append(newIDs, rec.ID)
		}
	}
	if lk != nil {
		lk.OnSuccess(srcID, newIDs)
	}
}

// filterByDistance keeps only the records whose log2-distance to
// responder (the node that answered the FINDNODE, not our own local id)
// equals distance. Each discv5 node indexes its own buckets relative to
// itself, so the records a responder returns for distance d lie at distance
// d from the responder. A distance of 0 applies no filter.
func filterByDistance(recs []*NodeRecord, distance int, responder enode.NodeID) []*NodeRecord {
	if distance == 0 {
		return recs
	}
	out := make([]*NodeRecord, 0, len(recs))
	for _, rec := range recs {
		if enode.Distance(responder, rec.ID) == distance {
			out = append(out, rec)
		}
	}
	return out
}

// --- session lifecycle events -----------------------------------------------

func (r *Reactor) onEstablished(rec *NodeRecord) {
	r.addConnected(rec)
	r.connected[rec.ID] = struct{}{}
	r.sendPing(rec)
	r.timers.Arm(rec.ID, PingInterval)
	r.metrics.connectedPeers.Set(int64(len(r.connected)))
}

func (r *Reactor) onWhoAreYouRequest(srcID enode.NodeID, src net.UDPAddr, authTag [12]byte) {
	rec := r.findENR(srcID)
	var seq uint64
	if rec != nil {
		seq = rec.Seq
	}
	if err := r.session.SendWhoAreYou(src, srcID, seq, rec, authTag); err != nil {
		r.log.Warn("failed to answer whoareyou", "peer", srcID, "err", err)
	} else {
		r.metrics.messagesSent.Inc()
	}
}

func (r *Reactor) onRequestFailed(srcID enode.NodeID, reqID uint64) {
	r.metrics.requestsTimedOut.Inc()
	entry, ok := r.activeRequests[reqID]
	delete(r.activeRequests, reqID)

	if p, hasPartial := r.partials[reqID]; hasPartial {
		delete(r.partials, reqID)
		if ok && len(p.records) > 0 {
			r.discovered(srcID, p.records, entry)
		}
	}

	if ok && entry.hasLookup {
		if lk, found := r.lookups.get(entry.lookupID); found {
			lk.OnFailure(srcID)
		}
	}

	if idx, pending := r.pendingEvictions[srcID]; pending {
		delete(r.pendingEvictions, srcID)
		r.table.ResolvePendingEviction(idx, false)
	}

	r.table.UpdateStatus(srcID, StatusDisconnected)
	r.timers.Cancel(srcID)
	delete(r.connected, srcID)
	r.metrics.connectedPeers.Set(int64(len(r.connected)))
}

func (r *Reactor) onPingTimer(id enode.NodeID) {
	if _, ok := r.connected[id]; !ok {
		return
	}
	rec := r.table.GetValue(id)
	if rec == nil {
		delete(r.connected, id)
		return
	}
	r.sendPing(rec)
	r.timers.Arm(id, PingInterval)
}

// --- eviction observer -------------------------------------------------------

// PendingEviction challenges victim with a PING, as required by the
// eviction protocol.
func (r *Reactor) PendingEviction(victim *NodeRecord) {
	req := &Ping{ReqID: r.newReqID(), ENRSeq: r.self.Seq}
	if err := r.session.SendRequest(victim, req); err != nil {
		r.log.Warn("failed to challenge eviction victim", "peer", victim.ID, "err", err)
		return
	}
	idx := r.table.BucketIndex(victim.ID)
	r.activeRequests[req.ReqID] = &requestEntry{msg: req, destID: victim.ID}
	r.pendingEvictions[victim.ID] = idx
	r.metrics.requestsSent.Inc()
	r.metrics.messagesSent.Inc()
	r.metrics.pendingChallenges.Inc()
}

// AppliedEviction reports the outcome of a completed eviction.
func (r *Reactor) AppliedEviction(inserted, evicted *NodeRecord) {
	r.metrics.evictionsApplied.Inc()
	r.emit(EventEnrAdded{Inserted: inserted, Evicted: evicted})
}

// --- routing table helpers ---------------------------------------------------

// AddEnr implements the addEnr(enr) operation: if rec is already present in
// the table (including its bucket's pending slot), its value is refreshed
// in place with no status change; an equal-seq record is a complete no-op.
// Otherwise rec is inserted as StatusDisconnected and, on success,
// EventEnrAdded fires. It returns whether rec was freshly inserted.
//
// AddEnr is exported so a caller seeding the table from a static bootstrap
// list (see p2p/bootstrap) can drive the same insertion path the reactor
// itself uses, rather than reaching into the table directly. It must only
// be called before Start, or from within run's own goroutine: like every
// other table mutation, it is not safe for concurrent use.
func (r *Reactor) AddEnr(rec *NodeRecord) bool { return r.addEnr(rec) }

func (r *Reactor) addEnr(rec *NodeRecord) bool {
	if e := r.table.GetWithPending(rec.ID); e != nil {
		if e.Record.Seq == rec.Seq {
			return false
		}
		r.table.UpdateValue(rec)
		return false
	}
	inserted := r.table.Add(rec, StatusDisconnected)
	if inserted {
		r.emit(EventEnrAdded{Inserted: rec})
		r.metrics.tableSize.Set(int64(len(r.table.Values())))
	}
	return inserted
}

// addConnected inserts or refreshes rec as StatusConnected, used only when
// a session has just been established with it: unlike addEnr, a freshly
// established peer is known live, not merely heard about.
func (r *Reactor) addConnected(rec *NodeRecord) bool {
	if e := r.table.GetWithPending(rec.ID); e != nil {
		r.table.Update(rec, StatusConnected)
		return false
	}
	inserted := r.table.Add(rec, StatusConnected)
	if inserted {
		r.emit(EventEnrAdded{Inserted: rec})
		r.metrics.tableSize.Set(int64(len(r.table.Values())))
	}
	return inserted
}

func (r *Reactor) findENR(id enode.NodeID) *NodeRecord {
	if rec := r.table.GetValue(id); rec != nil {
		return rec
	}
	for _, al := range r.lookups.active {
		if rec, ok := al.lookup.UntrustedENR(id); ok {
			return rec
		}
	}
	return nil
}

func (r *Reactor) recordIPVote(from enode.NodeID, ip string, port uint16) {
	r.ipVotes.Set(from, ipVote{ip: ip, port: port})
	// Majority-vote aggregation over r.ipVotes is left unimplemented: no
	// caller currently needs a consensus external address.
}

// --- lookups ------------------------------------------------------------

// FindNode runs an iterative lookup for target and returns up to
// numResults closest known records. It blocks until the lookup converges,
// ctx is canceled, or the reactor stops.
func (r *Reactor) FindNode(ctx context.Context, target enode.NodeID) ([]*NodeRecord, error) {
	seeds := r.table.Nearest(target, r.numResults)
	seedIDs := make([]enode.NodeID, len(seeds))
	for i, s := range seeds {
		seedIDs[i] = s.ID
	}
	cmd := startLookupCmd{target: target, seeds: seedIDs, result: make(chan []*NodeRecord, 1)}
	select {
	case r.cmdCh <- cmd:
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-r.doneCh:
		return nil, errors.New("reactor: stopped")
	}
	select {
	case recs := <-cmd.result:
		return recs, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-r.doneCh:
		return nil, errors.New("reactor: stopped")
	}
}

func (r *Reactor) startLookup(cmd startLookupCmd) {
	id := r.lookups.allocID()
	lk := NewLookup(id, cmd.target, r.alpha, r.numResults, cmd.seeds)
	timer := metrics.NewTimer(r.metrics.lookupDuration)
	r.lookups.register(id, lk, cmd.result, timer)
	r.metrics.lookupsStarted.Inc()
}

// pumpLookups drives every active lookup forward: it pulls the next batch
// of candidates from each and issues probes, then finalizes any lookup that
// has converged.
func (r *Reactor) pumpLookups() {
	for id, al := range r.lookups.active {
		for _, peerID := range al.lookup.Peers() {
			r.probe(al.lookup, peerID)
		}
		if al.lookup.Finished() {
			r.finishLookup(id)
		}
	}
}

func (r *Reactor) probe(lk *Lookup, peerID enode.NodeID) {
	target := lk.Target()
	distance := enode.Distance(peerID, target)
	req := &FindNode{ReqID: r.newReqID(), Distance: distance}

	dest := r.findENR(peerID)
	var err error
	if dest != nil {
		err = r.session.SendRequest(dest, req)
	} else {
		r.log.Warn("probing peer with unknown ENR", "peer", peerID)
		lk.OnFailure(peerID)
		return
	}
	if err != nil {
		r.log.Warn("failed to send findnode probe", "peer", peerID, "err", err)
		lk.OnFailure(peerID)
		return
	}
	r.activeRequests[req.ReqID] = &requestEntry{msg: req, destID: peerID, lookupID: lk.ID(), hasLookup: true}
	r.metrics.requestsSent.Inc()
	r.metrics.messagesSent.Inc()
}

func (r *Reactor) finishLookup(id uint32) {
	al, ok := r.lookups.active[id]
	if !ok {
		return
	}
	closest := al.lookup.Closest()
	out := make([]*NodeRecord, 0, len(closest))
	for _, pid := range closest {
		if rec := r.findENR(pid); rec != nil {
			out = append(out, rec)
		}
	}
	select {
	case al.result <- out:
	default:
	}
	r.lookups.remove(id)
	al.timer.Stop()
	r.metrics.lookupsFinished.Inc()
}

// --- misc --------------------------------------------------------------

func (r *Reactor) sendPing(rec *NodeRecord) {
	req := &Ping{ReqID: r.newReqID(), ENRSeq: r.self.Seq}
	if err := r.session.SendRequest(rec, req); err != nil {
		r.log.Warn("failed to send ping", "peer", rec.ID, "err", err)
		return
	}
	r.activeRequests[req.ReqID] = &requestEntry{msg: req, destID: rec.ID}
	r.metrics.requestsSent.Inc()
	r.metrics.messagesSent.Inc()
}

// newReqID generates a random request id for correlating a request with
// its eventual response. This is a protocol-level correlation tag, not a
// cryptographic primitive, so crypto/rand is used directly rather than
// routing through the crypto package.
func (r *Reactor) newReqID() uint64 {
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		panic("discover: failed to read random request id: " + err.Error())
	}
	return binary.BigEndian.Uint64(b[:])
}
