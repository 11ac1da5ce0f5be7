package services

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/charlesng35/grantstore/internal/database/testutil"
)

func newAuthorizationTestService(t *testing.T, opts ...AuthorizationOption) (*AuthorizationService, *AuditService) {
	t.Helper()

	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	audit, err := NewAuditService(db)
	require.NoError(t, err)

	opts = append([]AuthorizationOption{WithAuthorizationAudit(audit)}, opts...)
	svc, err := NewAuthorizationService(db, opts...)
	require.NoError(t, err)
	return svc, audit
}
