package agent

import (
	"math/rand/v2"
	"strconv"
	"time"
)

// SessionTimeout is the inactivity gap after which a visit is considered
// over and the next event mints a fresh session id.
const SessionTimeout = 30 * time.Minute

// SessionParam is the query parameter carrying a session id across
// configured cross-domain navigations.
const SessionParam = "_sp_sid"

// SessionID returns the current session id, minting or rotating one as
// needed, and refreshes the last-activity timestamp. It never returns an
// empty string and never blocks.
func (a *Agent) SessionID() string {
	if a.disabled {
		return ""
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.sessionIDLocked()
}

func (a *Agent) sessionIDLocked() string {
	now := a.clock.Now()

	// Adopt a propagated id once, before any session exists in memory.
	if a.sessionID == "" {
		if v := a.page.Query().Get(SessionParam); v != "" {
			a.sessionID = v
			a.lastActivity = now
		}
	}

	if a.sessionID == "" || now.Sub(a.lastActivity) > SessionTimeout {
		a.sessionID = newSessionID(now)
	}
	a.lastActivity = now
	return a.sessionID
}

const base36 = "0123456789abcdefghijklmnopqrstuvwxyz"

// newSessionID combines a random base-36 token with a base-36 timestamp
// component for uniqueness across visitors minting ids in the same instant.
func newSessionID(now time.Time) string {
	b := make([]byte, 11)
	for i := range b {
		b[i] = base36[rand.IntN(len(base36))]
	}
	return string(b) + strconv.FormatInt(now.UnixMilli(), 36)
}
