package domain

import (
	"fmt"
	"sort"
	"strings"
)

// Key identifies a gated dashboard capability. Keys form a closed enumeration:
// anything outside the catalog below is rejected at the write boundary.
type Key string

// The permission catalog. One key per gated feature of the dashboard.
const (
	PermDashboardView Key = "dashboard.view"

	PermLoansView   Key = "loans.view"
	PermLoansCreate Key = "loans.create"
	PermLoansEdit   Key = "loans.edit"
	PermLoansDelete Key = "loans.delete"

	PermBorrowersView Key = "borrowers.view"
	PermBorrowersEdit Key = "borrowers.edit"

	PermIncomeView Key = "income.view"
	PermIncomeEdit Key = "income.edit"

	PermReportsView   Key = "reports.view"
	PermReportsExport Key = "reports.export"

	PermSettingsView        Key = "settings.view"
	PermSettingsUsersView   Key = "settings.users.view"
	PermSettingsUsersEdit   Key = "settings.users.edit"
	PermSettingsRolesView   Key = "settings.roles.view"
	PermSettingsRolesEdit   Key = "settings.roles.edit"
	PermSettingsCompanyEdit Key = "settings.company.edit"
)

// ManageRoles is the distinguished key gating role administration. An identity
// may only edit permission sets if its own role holds this key.
const ManageRoles = PermSettingsRolesEdit

var catalog = map[Key]struct{}{
	PermDashboardView:       {},
	PermLoansView:           {},
	PermLoansCreate:         {},
	PermLoansEdit:           {},
	PermLoansDelete:         {},
	PermBorrowersView:       {},
	PermBorrowersEdit:       {},
	PermIncomeView:          {},
	PermIncomeEdit:          {},
	PermReportsView:         {},
	PermReportsExport:       {},
	PermSettingsView:        {},
	PermSettingsUsersView:   {},
	PermSettingsUsersEdit:   {},
	PermSettingsRolesView:   {},
	PermSettingsRolesEdit:   {},
	PermSettingsCompanyEdit: {},
}

// KnownKey reports whether k is part of the catalog.
func KnownKey(k Key) bool {
	_, ok := catalog[k]
	return ok
}

// Catalog returns every known permission key, sorted.
func Catalog() []Key {
	out := make([]Key, 0, len(catalog))
	for k := range catalog {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// PermissionSet is a flat set of permission keys. No ordering, no hierarchy,
// no wildcards: a capability is either present or absent.
type PermissionSet map[Key]struct{}

// NewPermissionSet builds a set from keys. Duplicates collapse.
func NewPermissionSet(keys ...Key) PermissionSet {
	s := make(PermissionSet, len(keys))
	for _, k := range keys {
		s[k] = struct{}{}
	}
	return s
}

// Has reports membership of k.
func (s PermissionSet) Has(k Key) bool {
	_, ok := s[k]
	return ok
}

// SubsetOf reports whether every key in s is also in other.
func (s PermissionSet) SubsetOf(other PermissionSet) bool {
	for k := range s {
		if !other.Has(k) {
			return false
		}
	}
	return true
}

// Keys returns the members sorted, for stable serialization.
func (s PermissionSet) Keys() []Key {
	out := make([]Key, 0, len(s))
	for k := range s {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Clone returns an independent copy of the set.
func (s PermissionSet) Clone() PermissionSet {
	out := make(PermissionSet, len(s))
	for k := range s {
		out[k] = struct{}{}
	}
	return out
}

// ParseSet builds a PermissionSet from raw strings, validating each against the
// catalog. All unknown keys are aggregated into a single error rather than
// failing on the first.
func ParseSet(raw []string) (PermissionSet, error) {
	s := make(PermissionSet, len(raw))
	var unknown []string
	for _, k := range raw {
		key := Key(k)
		if !KnownKey(key) {
			unknown = append(unknown, k)
			continue
		}
		s[key] = struct{}{}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return nil, fmt.Errorf("unknown permission keys: %s", strings.Join(unknown, ", "))
	}
	return s, nil
}
