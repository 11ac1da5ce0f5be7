package models

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBaseModelBeforeCreateGeneratesID(t *testing.T) {
	var base BaseModel
	require.NoError(t, base.BeforeCreate(nil))
	require.NotEmpty(t, base.ID)
}

func TestBaseModelBeforeCreateKeepsExplicitID(t *testing.T) {
	base := BaseModel{ID: "authorization.view"}
	require.NoError(t, base.BeforeCreate(nil))
	require.Equal(t, "authorization.view", base.ID)
}

func TestEmbeddedModelsUseBaseBeforeCreate(t *testing.T) {
	cases := []struct {
		name  string
		model func() *BaseModel
	}{
		{"authorization", func() *BaseModel {
			a := &Authorization{}
			return &a.BaseModel
		}},
		{"user", func() *BaseModel {
			u := &User{}
			return &u.BaseModel
		}},
		{"role", func() *BaseModel {
			r := &Role{}
			return &r.BaseModel
		}},
		{"permission", func() *BaseModel {
			p := &Permission{}
			return &p.BaseModel
		}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			model := tc.model()
			require.NoError(t, model.BeforeCreate(nil))
			require.NotEmpty(t, model.ID)
		})
	}
}

func TestAuditLogBeforeCreateGeneratesID(t *testing.T) {
	var entry AuditLog
	require.NoError(t, entry.BeforeCreate(nil))
	require.NotEmpty(t, entry.ID)
}

func TestAuthorizationReservedPrincipals(t *testing.T) {
	require.True(t, (&Authorization{Principal: PrincipalAll, PrincipalType: PrincipalTypeUser}).IsAllPrincipals())
	require.True(t, (&Authorization{Principal: "x", PrincipalType: PrincipalTypeAll}).IsAllPrincipals())
	require.True(t, (&Authorization{Principal: PrincipalAnonymous, PrincipalType: PrincipalTypeUser}).IsAnonymousPrincipal())
	require.False(t, (&Authorization{Principal: "alice", PrincipalType: PrincipalTypeUser}).IsAllPrincipals())
	require.False(t, (&Authorization{Principal: "alice", PrincipalType: PrincipalTypeUser}).IsAnonymousPrincipal())
}

func TestPermissionLevelName(t *testing.T) {
	require.Equal(t, "none", PermissionLevelName(PermissionNoneStart))
	require.Equal(t, "none", PermissionLevelName(PermissionReadStart-1))
	require.Equal(t, "read", PermissionLevelName(PermissionReadStart))
	require.Equal(t, "edit", PermissionLevelName(PermissionEditStart+5))
	require.Equal(t, "delete", PermissionLevelName(PermissionMax))
}

func TestAuthorizationTableName(t *testing.T) {
	require.Equal(t, "authorizations", Authorization{}.TableName())
}
