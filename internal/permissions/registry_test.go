package permissions

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRegisterRejectsMalformedIDs(t *testing.T) {
	require.Error(t, Register(nil))
	require.Error(t, Register(&Permission{ID: ""}))
	require.Error(t, Register(&Permission{ID: "noaction"}))
	require.Error(t, Register(&Permission{ID: ".view"}))
	require.Error(t, Register(&Permission{ID: "roles."}))
}

func TestRegisterRejectsDuplicates(t *testing.T) {
	// roles.view is part of the built-in catalog.
	err := Register(&Permission{ID: "roles.view"})
	require.ErrorContains(t, err, "already registered")
}

func TestGetSplitsCategoryAndAction(t *testing.T) {
	perm, ok := Get("roles.assign")
	require.True(t, ok)
	require.Equal(t, "roles", perm.Category)
	require.Equal(t, "assign", perm.Action)
}

func TestGetUnknown(t *testing.T) {
	_, ok := Get("missing.permission")
	require.False(t, ok)
}

func TestAllSortedByCategoryThenAction(t *testing.T) {
	perms := All()
	require.NotEmpty(t, perms)

	sorted := sort.SliceIsSorted(perms, func(i, j int) bool {
		if perms[i].Category != perms[j].Category {
			return perms[i].Category < perms[j].Category
		}
		return perms[i].Action < perms[j].Action
	})
	require.True(t, sorted)
}

func TestCatalogCoversAdminCategories(t *testing.T) {
	categories := map[string]bool{}
	for _, perm := range All() {
		categories[perm.Category] = true
	}

	for _, want := range []string{"dashboard", "analytics", "users", "mod", "roles", "content", "system"} {
		require.True(t, categories[want], "catalog missing category %s", want)
	}
}
