package http

import (
	"golang.org/x/time/rate"
)

// admission applies accept_rate to WebSocket upgrades. max_connections is
// enforced by the session tracker when the slot is reserved.
type admission struct {
	limiter *rate.Limiter
}

func newAdmission(perSecond float64) *admission {
	a := &admission{}
	if perSecond > 0 {
		a.limiter = rate.NewLimiter(rate.Limit(perSecond), max(1, int(perSecond)))
	}
	return a
}

func (a *admission) allow() (bool, string) {
	if a == nil || a.limiter == nil {
		return true, ""
	}
	if !a.limiter.Allow() {
		return false, "too many connections"
	}
	return true, ""
}
