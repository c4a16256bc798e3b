package permissions

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Permission describes a catalog entry. The ID is the dotted name exposed to
// clients and stored on role_permissions rows; Category and Action are the
// two halves of that name and drive display ordering.
type Permission struct {
	ID          string
	Category    string
	Action      string
	Description string
}

type permissionRegistry struct {
	mu          sync.RWMutex
	permissions map[string]*Permission
}

var globalRegistry = &permissionRegistry{
	permissions: make(map[string]*Permission),
}

var (
	// ErrUnknownPermission indicates a permission name missing from the catalog.
	ErrUnknownPermission = errors.New("permission: unknown permission")

	errNilPermission = errors.New("permission: nil definition")
	errEmptyID       = errors.New("permission: id is required")
	errMalformedID   = errors.New("permission: id must be category.action")
	errDuplicateID   = errors.New("permission: already registered")
)

// Register adds a permission definition to the global registry. The catalog
// is fixed at startup; Register is only called from init functions and tests.
func Register(perm *Permission) error {
	if perm == nil {
		return errNilPermission
	}

	id := strings.TrimSpace(perm.ID)
	if id == "" {
		return errEmptyID
	}

	category, action, ok := strings.Cut(id, ".")
	if !ok || category == "" || action == "" {
		return fmt.Errorf("%w: %s", errMalformedID, id)
	}

	def := &Permission{
		ID:          id,
		Category:    category,
		Action:      action,
		Description: strings.TrimSpace(perm.Description),
	}

	globalRegistry.mu.Lock()
	defer globalRegistry.mu.Unlock()

	if _, exists := globalRegistry.permissions[id]; exists {
		return fmt.Errorf("%w: %s", errDuplicateID, id)
	}

	globalRegistry.permissions[id] = def
	return nil
}

// Get returns a copy of the permission definition when registered.
func Get(id string) (*Permission, bool) {
	globalRegistry.mu.RLock()
	defer globalRegistry.mu.RUnlock()

	perm, ok := globalRegistry.permissions[id]
	if !ok {
		return nil, false
	}
	cp := *perm
	return &cp, true
}

// All returns every registered permission sorted by (category, action).
func All() []*Permission {
	globalRegistry.mu.RLock()
	defer globalRegistry.mu.RUnlock()

	out := make([]*Permission, 0, len(globalRegistry.permissions))
	for _, perm := range globalRegistry.permissions {
		cp := *perm
		out = append(out, &cp)
	}
	SortPermissions(out)
	return out
}

// AllIDs returns every registered permission name sorted by (category, action).
func AllIDs() []string {
	perms := All()
	ids := make([]string, 0, len(perms))
	for _, perm := range perms {
		ids = append(ids, perm.ID)
	}
	return ids
}

// ByCategory gathers permissions registered under the given category.
func ByCategory(category string) []*Permission {
	globalRegistry.mu.RLock()
	defer globalRegistry.mu.RUnlock()

	category = strings.TrimSpace(category)
	var perms []*Permission
	for _, perm := range globalRegistry.permissions {
		if perm.Category == category {
			cp := *perm
			perms = append(perms, &cp)
		}
	}
	SortPermissions(perms)
	return perms
}

// SortPermissions orders permissions by (category, action) for display.
// Order carries no authorization meaning.
func SortPermissions(perms []*Permission) {
	sort.Slice(perms, func(i, j int) bool {
		if perms[i].Category != perms[j].Category {
			return perms[i].Category < perms[j].Category
		}
		return perms[i].Action < perms[j].Action
	})
}
