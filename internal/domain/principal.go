package domain

import (
	"time"

	"github.com/google/uuid"
)

// Principal is a platform user. Principals are never deleted; suspension
// keeps the row but blocks authentication upstream.
type Principal struct {
	ID        uuid.UUID `json:"id"`
	Email     string    `json:"email"`
	RoleID    uuid.UUID `json:"role_id"`
	Suspended bool      `json:"suspended"`
	CreatedAt time.Time `json:"created_at"`
}

// Role is a named bundle of permissions and column grants shared by many
// principals. Role mutation affects all members once resolver caches expire.
type Role struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}

// Permission is an atomic capability key, e.g. "_create_site" or a bare
// resource name standing for "may view that resource". Keys are globally
// unique.
type Permission struct {
	ID  uuid.UUID `json:"id"`
	Key string    `json:"key"`
}

// ResourceGrant is one readable (table, column) pair. A column is either
// granted or not; there is no row-level granularity at this layer.
type ResourceGrant struct {
	ID     uuid.UUID `json:"id"`
	Table  string    `json:"table"`
	Column string    `json:"column"`
}

// PermissionOverride layers a per-user grant or revocation on top of role
// permissions. Overrides are idempotent and order-independent: the merge is
// a pure union of grants followed by subtraction of revocations.
type PermissionOverride struct {
	Key     string `json:"key"`
	Granted bool   `json:"granted"`
}

// ResourceOverride layers a per-user column grant or revocation on top of
// role column grants for one table.
type ResourceOverride struct {
	Column  string `json:"column"`
	Granted bool   `json:"granted"`
}

// ColumnAccess carries everything needed to resolve the effective column
// set of one principal for one table.
type ColumnAccess struct {
	RoleColumns []string
	Overrides   []ResourceOverride
}

// PermissionAccess carries everything needed to resolve the effective
// permission set of one principal.
type PermissionAccess struct {
	RoleKeys  []string
	Overrides []PermissionOverride
}

// EffectiveColumns applies the override merge: role grants unioned with
// granted overrides, minus revoked overrides. Role order is preserved and
// override grants append after the role block.
func (a ColumnAccess) EffectiveColumns() []string {
	return mergeGrants(a.RoleColumns, overridePairs(a.Overrides))
}

// EffectiveKeys applies the same merge to permission keys.
func (a PermissionAccess) EffectiveKeys() []string {
	pairs := make([]grantPair, len(a.Overrides))
	for i, o := range a.Overrides {
		pairs[i] = grantPair{value: o.Key, granted: o.Granted}
	}
	return mergeGrants(a.RoleKeys, pairs)
}

type grantPair struct {
	value   string
	granted bool
}

func overridePairs(overrides []ResourceOverride) []grantPair {
	pairs := make([]grantPair, len(overrides))
	for i, o := range overrides {
		pairs[i] = grantPair{value: o.Column, granted: o.Granted}
	}
	return pairs
}

func mergeGrants(base []string, overrides []grantPair) []string {
	revoked := make(map[string]struct{})
	granted := make(map[string]struct{})
	for _, o := range overrides {
		if o.granted {
			granted[o.value] = struct{}{}
		} else {
			revoked[o.value] = struct{}{}
		}
	}

	seen := make(map[string]struct{}, len(base))
	result := make([]string, 0, len(base)+len(granted))
	for _, value := range base {
		if _, gone := revoked[value]; gone {
			continue
		}
		if _, dup := seen[value]; dup {
			continue
		}
		seen[value] = struct{}{}
		result = append(result, value)
	}

	for _, o := range overrides {
		if !o.granted {
			continue
		}
		if _, gone := revoked[o.value]; gone {
			continue
		}
		if _, dup := seen[o.value]; dup {
			continue
		}
		seen[o.value] = struct{}{}
		result = append(result, o.value)
	}

	return result
}
