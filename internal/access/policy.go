// Package access holds the configurable name-based access policy consulted
// before any slot mutation.
package access

import (
	"slotboard/internal/models"
)

// Policy is a deny-list of normalized identities loaded from configuration.
// A nil policy blocks nobody.
type Policy struct {
	blocked map[string]struct{}
}

// NewPolicy builds a policy from the configured blocked names.
func NewPolicy(blockedNames []string) *Policy {
	blocked := make(map[string]struct{}, len(blockedNames))
	for _, name := range blockedNames {
		name = models.NormalizeIdentity(name)
		if name != "" {
			blocked[name] = struct{}{}
		}
	}
	return &Policy{blocked: blocked}
}

// Blocked reports whether identity is denied by the policy.
func (p *Policy) Blocked(identity string) bool {
	if p == nil {
		return false
	}
	_, ok := p.blocked[models.NormalizeIdentity(identity)]
	return ok
}
