// Package auth merges the static ID allowlist and the channel-role
// lookup into one capability check.
package auth

import (
	"context"
	"log/slog"
)

// ChannelRoleChecker reports whether the user holds an administrator or
// owner role on the broadcast channel. The bot implements it.
type ChannelRoleChecker interface {
	IsChannelAdmin(ctx context.Context, userID int64) (bool, error)
}

// Capabilities is the merged grant set for one user.
type Capabilities struct {
	BypassGate    bool
	Panel         bool
	Upload        bool
	AdjustBalance bool
}

type Authorizer struct {
	adminIDs map[int64]struct{}
	ordered  []int64
	roles    ChannelRoleChecker
}

func NewAuthorizer(adminIDs []int64, roles ChannelRoleChecker) *Authorizer {
	set := make(map[int64]struct{}, len(adminIDs))
	for _, id := range adminIDs {
		set[id] = struct{}{}
	}
	return &Authorizer{adminIDs: set, ordered: adminIDs, roles: roles}
}

// IsStaticAdmin checks the allowlist only, without a network call.
func (a *Authorizer) IsStaticAdmin(userID int64) bool {
	_, ok := a.adminIDs[userID]
	return ok
}

// AdminIDs returns the static allowlist, used to exclude admin activity
// from sales statistics.
func (a *Authorizer) AdminIDs() []int64 {
	return a.ordered
}

// Capabilities computes the grant set. Static admins get everything;
// channel administrators get panel access and inventory upload only. A
// failed role lookup grants nothing beyond the static set.
func (a *Authorizer) Capabilities(ctx context.Context, userID int64) Capabilities {
	if a.IsStaticAdmin(userID) {
		return Capabilities{BypassGate: true, Panel: true, Upload: true, AdjustBalance: true}
	}

	if a.roles == nil {
		return Capabilities{}
	}
	isChannelAdmin, err := a.roles.IsChannelAdmin(ctx, userID)
	if err != nil {
		slog.Warn("channel role lookup failed", "user_id", userID, "error", err)
		return Capabilities{}
	}
	if isChannelAdmin {
		return Capabilities{Panel: true, Upload: true}
	}
	return Capabilities{}
}
