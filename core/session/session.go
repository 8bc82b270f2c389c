package session

import (
	"math/big"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ID is the 128-bit session identifier carried to the client as a decimal
// cookie value and used as the key into the Store.
type ID = uuid.UUID

// NewID generates a fresh random session id.
func NewID() ID {
	return uuid.New()
}

// ParseID parses the decimal u128 text carried in the rustletsessionid
// cookie back into an ID.
func ParseID(decimal string) (ID, bool) {
	n, ok := new(big.Int).SetString(decimal, 10)
	if !ok || n.Sign() < 0 {
		return ID{}, false
	}

	b := n.Bytes()
	if len(b) > 16 {
		return ID{}, false
	}

	var buf [16]byte
	copy(buf[16-len(b):], b)

	id, err := uuid.FromBytes(buf[:])
	if err != nil {
		return ID{}, false
	}
	return id, true
}

// Text renders id as the decimal string used in the session cookie.
func Text(id ID) string {
	return new(big.Int).SetBytes(id[:]).String()
}

// data is the per-session bag: a last-access timestamp and named values.
type data struct {
	mu           sync.RWMutex
	values       map[string][]byte
	lastAccessMs int64
}

func newData() *data {
	return &data{values: make(map[string][]byte), lastAccessMs: nowMillis()}
}

func nowMillis() int64 {
	return time.Now().UnixMilli()
}

// Store is the process-wide session map. The zero value is not usable;
// construct with New.
type Store struct {
	mu       sync.RWMutex
	sessions map[ID]*data
}

// New creates an empty Store.
func New() *Store {
	return &Store{sessions: make(map[ID]*data)}
}

// ensure returns the session bag for id, creating it if absent. This makes
// Get idempotent with respect to session creation: a Get on an id with no
// entry yields a fresh empty bag so a following Set cannot race against a
// concurrent first access.
func (s *Store) ensure(id ID) *data {
	s.mu.RLock()
	d, ok := s.sessions[id]
	s.mu.RUnlock()
	if ok {
		return d
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if d, ok = s.sessions[id]; ok {
		return d
	}
	d = newData()
	s.sessions[id] = d
	return d
}

// Get returns the raw bytes stored under key for id and updates the
// session's last-access time. The bool is false if key has never been set.
func (s *Store) Get(id ID, key string) ([]byte, bool) {
	d := s.ensure(id)

	d.mu.Lock()
	defer d.mu.Unlock()
	d.lastAccessMs = nowMillis()

	v, ok := d.values[key]
	return v, ok
}

// Set stores value under key for id and updates the last-access time.
func (s *Store) Set(id ID, key string, value []byte) {
	d := s.ensure(id)

	d.mu.Lock()
	defer d.mu.Unlock()
	d.lastAccessMs = nowMillis()
	d.values[key] = value
}

// Delete removes key from id's session, if present.
func (s *Store) Delete(id ID, key string) {
	d := s.ensure(id)

	d.mu.Lock()
	defer d.mu.Unlock()
	d.lastAccessMs = nowMillis()
	delete(d.values, key)
}

// Invalidate removes the entire session identified by id.
func (s *Store) Invalidate(id ID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
}

// Sweep removes every session whose last access is older than timeout and
// returns the number of sessions removed. A non-positive timeout disables
// expiry and Sweep is a no-op.
func (s *Store) Sweep(timeout time.Duration) int {
	if timeout <= 0 {
		return 0
	}

	cutoff := nowMillis() - timeout.Milliseconds()

	var expired []ID
	s.mu.RLock()
	for id, d := range s.sessions {
		d.mu.RLock()
		last := d.lastAccessMs
		d.mu.RUnlock()
		if last <= cutoff {
			expired = append(expired, id)
		}
	}
	s.mu.RUnlock()

	if len(expired) == 0 {
		return 0
	}

	s.mu.Lock()
	for _, id := range expired {
		delete(s.sessions, id)
	}
	s.mu.Unlock()

	return len(expired)
}

// Len reports the number of sessions currently tracked. Intended for tests
// and diagnostics.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}
