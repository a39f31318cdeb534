package notification

import (
	"errors"
	"sync"

	"volunteer-service/internal/logging"
	"volunteer-service/internal/metrics"
)

// ErrTooManyConnections is returned by Add when an organisation is at its cap.
var ErrTooManyConnections = errors.New("too many live connections")

// Channel is one open delivery path to a client.
type Channel interface {
	Send(message []byte) error
	Close() error
}

// Registry tracks live channels per organisation. It is process-local; a relay
// is needed to reach channels held by other instances.
//
// mutex guards the maps only. Network writes run under the organisation's
// send lock, so a slow client delays its own organisation and nobody else.
type Registry struct {
	connections map[string]map[Channel]bool // organisationID -> set of channels
	sendLocks   map[string]*sync.Mutex      // organisationID -> fan-out lock
	mutex       sync.Mutex
	maxPerOrg   int
	logger      *logging.Logger
}

func NewRegistry(maxPerOrg int, logger *logging.Logger) *Registry {
	return &Registry{
		connections: make(map[string]map[Channel]bool),
		sendLocks:   make(map[string]*sync.Mutex),
		maxPerOrg:   maxPerOrg,
		logger:      logger,
	}
}

// Add registers a channel for an organisation
func (r *Registry) Add(organisationID string, ch Channel) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	if _, exists := r.connections[organisationID]; !exists {
		r.connections[organisationID] = make(map[Channel]bool)
	}
	if r.maxPerOrg > 0 && len(r.connections[organisationID]) >= r.maxPerOrg {
		r.logger.Warnf("Max connections reached for organisation %s", organisationID)
		return ErrTooManyConnections
	}
	r.connections[organisationID][ch] = true
	metrics.LiveConnections.Inc()
	r.logger.Infof("Added live connection for organisation %s (total: %d)", organisationID, len(r.connections[organisationID]))
	return nil
}

// Remove deregisters a channel. Removing an unknown channel is a no-op.
func (r *Registry) Remove(organisationID string, ch Channel) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	conns, exists := r.connections[organisationID]
	if !exists || !conns[ch] {
		return
	}
	delete(conns, ch)
	if len(conns) == 0 {
		delete(r.connections, organisationID)
	}
	metrics.LiveConnections.Dec()
	r.logger.Infof("Removed live connection for organisation %s (remaining: %d)", organisationID, len(conns))
}

// Send delivers message to every channel of the organisation. A channel whose
// send fails is closed and dropped; the others still receive the message.
// Fan-outs for one organisation are serialised so each channel sees messages
// in publish order.
func (r *Registry) Send(organisationID string, message []byte) (sent, failed int) {
	sendLock := r.sendLock(organisationID)
	sendLock.Lock()
	defer sendLock.Unlock()

	targets := r.snapshot(organisationID)
	if len(targets) == 0 {
		return 0, 0
	}

	var broken []Channel
	for _, ch := range targets {
		if err := ch.Send(message); err != nil {
			r.logger.Warnf("Failed to send live message to organisation %s: %v", organisationID, err)
			broken = append(broken, ch)
			continue
		}
		sent++
	}
	for _, ch := range broken {
		r.Remove(organisationID, ch)
		_ = ch.Close()
	}
	return sent, len(broken)
}

func (r *Registry) sendLock(organisationID string) *sync.Mutex {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	l, ok := r.sendLocks[organisationID]
	if !ok {
		l = &sync.Mutex{}
		r.sendLocks[organisationID] = l
	}
	return l
}

func (r *Registry) snapshot(organisationID string) []Channel {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	conns := r.connections[organisationID]
	out := make([]Channel, 0, len(conns))
	for ch := range conns {
		out = append(out, ch)
	}
	return out
}

// Count returns how many channels the organisation currently has.
func (r *Registry) Count(organisationID string) int {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	return len(r.connections[organisationID])
}
