package accounts

import (
	"sync"
	"time"

	"tweetmap/pkg/logger"
)

// SessionSaver persists refreshed session tokens. Implemented by SessionStore.
type SessionSaver interface {
	Put(username, token string) error
}

// entry is an account plus its health state. Health is owned exclusively by
// the pool and only changes under the pool mutex.
type entry struct {
	account       *Account
	leased        bool
	disabledUntil time.Time
}

// Pool rotates leases over a fixed set of accounts. The rotation order is
// fixed at construction; eligibility is checked per scan rather than by
// mutating the list, so concurrent disable/release cannot reorder it.
type Pool struct {
	mu       sync.Mutex
	entries  []*entry
	next     int
	cooldown time.Duration
	sessions SessionSaver
	logger   logger.Logger
	now      func() time.Time
}

// PoolOption configures a Pool
type PoolOption func(*Pool)

// WithSessions attaches a persistent session-token store
func WithSessions(s SessionSaver) PoolOption {
	return func(p *Pool) { p.sessions = s }
}

// WithClock overrides the pool's clock (tests)
func WithClock(now func() time.Time) PoolOption {
	return func(p *Pool) { p.now = now }
}

// NewPool creates a pool over the given accounts. A disabled account becomes
// eligible again once its cooldown elapses; ResetAll clears cooldowns early.
func NewPool(accts []*Account, cooldown time.Duration, log logger.Logger, opts ...PoolOption) *Pool {
	if log == nil {
		log = logger.GetLogger()
	}

	entries := make([]*entry, len(accts))
	for i, a := range accts {
		entries[i] = &entry{account: a}
	}

	p := &Pool{
		entries:  entries,
		cooldown: cooldown,
		logger:   log,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Size returns the number of accounts in the rotation
func (p *Pool) Size() int {
	return len(p.entries)
}

// Lease returns the next eligible account in cyclic order, starting after the
// last account handed out. Returns ErrUnavailable when every account is
// currently leased or disabled.
func (p *Pool) Lease() (*Account, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.entries) == 0 {
		return nil, ErrUnavailable
	}

	now := p.now()
	for i := 0; i < len(p.entries); i++ {
		idx := (p.next + i) % len(p.entries)
		e := p.entries[idx]
		if e.leased || e.disabledUntil.After(now) {
			continue
		}

		e.leased = true
		p.next = (idx + 1) % len(p.entries)

		p.logger.DebugWithFields("account leased", map[string]interface{}{
			"account": e.account.Username,
		})
		return e.account, nil
	}

	return nil, ErrUnavailable
}

// Release returns a leased account to the eligible set. Releasing an account
// that is not leased is a no-op.
func (p *Pool) Release(acct *Account) {
	p.mu.Lock()
	defer p.mu.Unlock()

	e := p.find(acct)
	if e == nil || !e.leased {
		return
	}
	e.leased = false

	p.logger.DebugWithFields("account released", map[string]interface{}{
		"account": acct.Username,
	})
}

// Disable takes an account out of rotation until its cooldown elapses.
// The caller still holds the lease and must Release separately.
func (p *Pool) Disable(acct *Account, reason string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	e := p.find(acct)
	if e == nil {
		return
	}
	e.disabledUntil = p.now().Add(p.cooldown)

	p.logger.WarnWithFields("account disabled", map[string]interface{}{
		"account":        acct.Username,
		"reason":         reason,
		"disabled_until": e.disabledUntil,
	})
}

// ResetAll clears every cooldown, making all non-leased accounts eligible
// again immediately
func (p *Pool) ResetAll() {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, e := range p.entries {
		e.disabledUntil = time.Time{}
	}

	p.logger.Info("account cooldowns reset")
}

// RefreshSession stores a new session token for the account and persists it
// if a session store is attached
func (p *Pool) RefreshSession(acct *Account, token string) {
	p.mu.Lock()
	acct.SessionToken = token
	sessions := p.sessions
	p.mu.Unlock()

	if sessions == nil {
		return
	}
	if err := sessions.Put(acct.Username, token); err != nil {
		p.logger.WithError(err).WithField("account", acct.Username).
			Warn("failed to persist session token")
	}
}

// Health describes one account's pool state for inspection
type Health struct {
	Username      string    `json:"username"`
	Leased        bool      `json:"leased"`
	Disabled      bool      `json:"disabled"`
	DisabledUntil time.Time `json:"disabled_until,omitempty"`
	HasSession    bool      `json:"has_session"`
}

// Snapshot returns the current health of every account in rotation order
func (p *Pool) Snapshot() []Health {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := p.now()
	out := make([]Health, len(p.entries))
	for i, e := range p.entries {
		out[i] = Health{
			Username:   e.account.Username,
			Leased:     e.leased,
			Disabled:   e.disabledUntil.After(now),
			HasSession: e.account.SessionToken != "",
		}
		if out[i].Disabled {
			out[i].DisabledUntil = e.disabledUntil
		}
	}
	return out
}

func (p *Pool) find(acct *Account) *entry {
	for _, e := range p.entries {
		if e.account == acct {
			return e
		}
	}
	return nil
}
