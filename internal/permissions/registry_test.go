package permissions

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCorePermissionsRegistered(t *testing.T) {
	view, ok := Default.Lookup(AuthorizationView)
	require.True(t, ok)
	require.Equal(t, CoreModule, view.Module)

	manage, ok := Default.Lookup(AuthorizationManage)
	require.True(t, ok)
	require.Equal(t, []string{AuthorizationView}, manage.DependsOn)

	ids := make([]string, 0, len(Default.All()))
	for _, def := range Default.All() {
		ids = append(ids, def.ID)
	}
	require.Equal(t, []string{AuditView, AuthorizationManage, AuthorizationView}, ids)
	require.NoError(t, Default.Validate())
}

func TestRegistryRegister(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(Definition{ID: " grants.read ", Module: " test ", DependsOn: []string{"", "x", "x"}}))

	def, ok := r.Lookup("grants.read")
	require.True(t, ok)
	require.Equal(t, "test", def.Module)
	require.Equal(t, []string{"x"}, def.DependsOn)

	require.ErrorIs(t, r.Register(Definition{ID: "grants.read"}), errDuplicateID)
	require.ErrorIs(t, r.Register(Definition{ID: "  "}), errEmptyID)
	require.ErrorIs(t, r.Register(Definition{ID: "a", DependsOn: []string{"a"}}), errSelfLink)
	require.ErrorIs(t, r.Register(Definition{ID: "b", Implies: []string{"b"}}), errSelfLink)

	// a batch with a duplicate inside adds nothing
	require.ErrorIs(t, r.Register(Definition{ID: "c"}, Definition{ID: "c"}), errDuplicateID)
	_, ok = r.Lookup("c")
	require.False(t, ok)

	require.ErrorIs(t, r.Validate(), ErrUnknownPermission)
	require.Panics(t, func() { r.MustRegister(Definition{ID: "grants.read"}) })
}

func TestRegistryLookupReturnsCopy(t *testing.T) {
	manage, ok := Default.Lookup(AuthorizationManage)
	require.True(t, ok)
	manage.DependsOn[0] = "mutated"

	again, ok := Default.Lookup(AuthorizationManage)
	require.True(t, ok)
	require.Equal(t, []string{AuthorizationView}, again.DependsOn)
}

func TestRequirementsTransitiveClosure(t *testing.T) {
	r := NewRegistry()
	r.MustRegister(
		Definition{ID: "perm.base"},
		Definition{ID: "perm.mid", DependsOn: []string{"perm.base"}},
		Definition{ID: "perm.top", DependsOn: []string{"perm.mid"}},
	)

	deps, err := r.Requirements("perm.top")
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"perm.base", "perm.mid"}, deps)

	deps, err = r.Requirements("perm.base")
	require.NoError(t, err)
	require.Empty(t, deps)
}

func TestRequirementsDetectsCycles(t *testing.T) {
	r := NewRegistry()
	r.MustRegister(
		Definition{ID: "perm.cycle.first", DependsOn: []string{"perm.cycle.second"}},
		Definition{ID: "perm.cycle.second", DependsOn: []string{"perm.cycle.first"}},
	)

	_, err := r.Requirements("perm.cycle.first")
	require.ErrorIs(t, err, ErrCircularDependency)
}

func TestRequirementsUnknown(t *testing.T) {
	_, err := Default.Requirements("missing.permission")
	require.ErrorIs(t, err, ErrUnknownPermission)
}

func TestExpandFollowsImplications(t *testing.T) {
	r := NewRegistry()
	r.MustRegister(
		Definition{ID: "leaf"},
		Definition{ID: "middle", Implies: []string{"leaf"}},
		Definition{ID: "top", Implies: []string{"middle"}},
	)

	held, err := r.Expand([]string{"top"})
	require.NoError(t, err)
	require.Len(t, held, 3)
	require.Contains(t, held, "leaf")

	_, err = r.Expand([]string{"nope"})
	require.ErrorIs(t, err, ErrUnknownPermission)
}
