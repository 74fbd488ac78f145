// Package auth decides which senders may enter the task pipeline.
// Unauthorized senders have their messages consumed but never persisted,
// so no reply is ever synthesized for them.
package auth

import "strings"

// Authorizer is the capability check applied by the channel pollers.
type Authorizer interface {
	IsAuthorized(identity string) bool
}

// AllowlistAuthorizer authorizes a fixed set of sender identities
// (email addresses or Slack user ids). An empty allowlist authorizes
// everyone, which is the development default.
type AllowlistAuthorizer struct {
	allowed map[string]struct{}
}

// NewAllowlist creates an authorizer from a list of identities.
func NewAllowlist(identities []string) *AllowlistAuthorizer {
	allowed := make(map[string]struct{}, len(identities))
	for _, id := range identities {
		id = strings.ToLower(strings.TrimSpace(id))
		if id != "" {
			allowed[id] = struct{}{}
		}
	}
	return &AllowlistAuthorizer{allowed: allowed}
}

// IsAuthorized reports whether the identity may enter the pipeline.
func (a *AllowlistAuthorizer) IsAuthorized(identity string) bool {
	if len(a.allowed) == 0 {
		return true
	}
	_, ok := a.allowed[strings.ToLower(strings.TrimSpace(identity))]
	return ok
}
