package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"gorm.io/gorm"

	"github.com/charlesng35/grantstore/internal/models"
	apperrors "github.com/charlesng35/grantstore/pkg/errors"
)

func validGrant() AuthorizationInput {
	return AuthorizationInput{
		Resource:      "db1",
		ResourceType:  models.SchemaResourceType,
		Principal:     "alice",
		PrincipalType: models.PrincipalTypeUser,
		Permission:    2,
	}
}

func TestNewAuthorizationServiceRequiresDB(t *testing.T) {
	_, err := NewAuthorizationService(nil)
	require.Error(t, err)
}

func TestAuthorizationService_AddAndGetRoundTrip(t *testing.T) {
	svc, _ := newAuthorizationTestService(t)
	ctx := context.Background()

	id, err := svc.Add(ctx, "admin-1", validGrant())
	require.NoError(t, err)
	require.NotEmpty(t, id)

	grant, err := svc.GetByID(ctx, "admin-1", id, DefaultQueryContext())
	require.NoError(t, err)
	require.Equal(t, id, grant.ID)
	require.Equal(t, "db1", grant.Resource)
	require.Equal(t, models.SchemaResourceType, grant.ResourceType)
	require.Equal(t, "alice", grant.Principal)
	require.Equal(t, models.PrincipalTypeUser, grant.PrincipalType)
	require.Equal(t, 2, grant.Permission)
	require.Equal(t, "admin-1", grant.CreateUserID)
	require.Empty(t, grant.PrincipalLabel)
}

func TestAuthorizationService_AddTrimsInput(t *testing.T) {
	svc, _ := newAuthorizationTestService(t)
	ctx := context.Background()

	input := validGrant()
	input.Resource = "  db1  "
	input.Principal = "\talice\n"
	id, err := svc.Add(ctx, "admin-1", input)
	require.NoError(t, err)

	grant, err := svc.GetByIDForEdit(ctx, "admin-1", id)
	require.NoError(t, err)
	require.Equal(t, "db1", grant.Resource)
	require.Equal(t, "alice", grant.Principal)
}

func TestAuthorizationService_AddIgnoresSuppliedIDAndCreator(t *testing.T) {
	svc, _ := newAuthorizationTestService(t)
	ctx := context.Background()

	input := validGrant()
	input.ID = "caller-chosen"
	input.CreateUserID = "someone-else"
	id, err := svc.Add(ctx, "admin-1", input)
	require.NoError(t, err)
	require.NotEqual(t, "caller-chosen", id)

	grant, err := svc.GetByIDForEdit(ctx, "admin-1", id)
	require.NoError(t, err)
	require.Equal(t, "admin-1", grant.CreateUserID)
}

func TestAuthorizationService_AddRejectsInvalidInput(t *testing.T) {
	cases := map[string]func(*AuthorizationInput){
		"empty resource":       func(in *AuthorizationInput) { in.Resource = "" },
		"blank resource":       func(in *AuthorizationInput) { in.Resource = "   " },
		"empty resource type":  func(in *AuthorizationInput) { in.ResourceType = "" },
		"empty principal":      func(in *AuthorizationInput) { in.Principal = "" },
		"empty principal type": func(in *AuthorizationInput) { in.PrincipalType = "" },
		"permission too low":   func(in *AuthorizationInput) { in.Permission = models.PermissionNoneStart - 1 },
		"permission too high":  func(in *AuthorizationInput) { in.Permission = models.PermissionMax + 1 },
	}

	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			svc, _ := newAuthorizationTestService(t)
			ctx := context.Background()

			input := validGrant()
			mutate(&input)

			id, err := svc.Add(ctx, "admin-1", input)
			require.Error(t, err)
			require.Empty(t, id)
			require.ErrorIs(t, err, ErrAuthorizationInvalid)

			count, err := svc.Count(ctx)
			require.NoError(t, err)
			require.Zero(t, count)
		})
	}
}

func TestAuthorizationService_InvalidInputNamesFields(t *testing.T) {
	svc, _ := newAuthorizationTestService(t)

	_, err := svc.Add(context.Background(), "admin-1", AuthorizationInput{Permission: 1})
	require.Error(t, err)

	var appErr *apperrors.AppError
	require.True(t, errors.As(err, &appErr))
	require.Equal(t, "AUTHORIZATION_INVALID", appErr.Code)
	require.Equal(t, 400, appErr.StatusCode)
	require.Contains(t, appErr.Message, "resource")
	require.Contains(t, appErr.Message, "principal_type")
}

func TestAuthorizationService_PermissionBoundariesAccepted(t *testing.T) {
	svc, _ := newAuthorizationTestService(t)
	ctx := context.Background()

	for i, permission := range []int{models.PermissionNoneStart, models.PermissionReadStart, models.PermissionMax} {
		input := validGrant()
		input.Principal = fmt.Sprintf("user-%d", i)
		input.Permission = permission
		_, err := svc.Add(ctx, "admin-1", input)
		require.NoError(t, err, "permission %d", permission)
	}
}

func TestAuthorizationService_ConfiguredPermissionRange(t *testing.T) {
	svc, _ := newAuthorizationTestService(t, WithPermissionRange(models.PermissionReadStart, models.PermissionEditStart))
	ctx := context.Background()

	min, max := svc.PermissionRange()
	require.Equal(t, models.PermissionReadStart, min)
	require.Equal(t, models.PermissionEditStart, max)

	input := validGrant()
	input.Permission = models.PermissionNoneStart
	_, err := svc.Add(ctx, "admin-1", input)
	require.ErrorIs(t, err, ErrAuthorizationInvalid)

	input.Permission = models.PermissionReadStart
	_, err = svc.Add(ctx, "admin-1", input)
	require.NoError(t, err)
}

func TestAuthorizationService_InvalidPermissionRangeIgnored(t *testing.T) {
	svc, _ := newAuthorizationTestService(t, WithPermissionRange(10, 5))

	min, max := svc.PermissionRange()
	require.Equal(t, models.PermissionNoneStart, min)
	require.Equal(t, models.PermissionMax, max)
}

func TestAuthorizationService_ConcurrentAddsProduceUniqueIDs(t *testing.T) {
	svc, _ := newAuthorizationTestService(t)
	sqlDB, err := svc.db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	const workers = 16
	var (
		wg  sync.WaitGroup
		mu  sync.Mutex
		ids = make(map[string]struct{}, workers)
	)
	errs := make(chan error, workers)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			input := validGrant()
			input.Principal = fmt.Sprintf("user-%d", n)
			id, err := svc.Add(context.Background(), "admin-1", input)
			if err != nil {
				errs <- err
				return
			}
			mu.Lock()
			ids[id] = struct{}{}
			mu.Unlock()
		}(i)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}
	require.Len(t, ids, workers)
}

func TestAuthorizationService_DuplicateGrantConflicts(t *testing.T) {
	svc, _ := newAuthorizationTestService(t)
	ctx := context.Background()

	_, err := svc.Add(ctx, "admin-1", validGrant())
	require.NoError(t, err)

	_, err = svc.Add(ctx, "admin-1", validGrant())
	require.ErrorIs(t, err, ErrAuthorizationExists)

	count, err := svc.Count(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(1), count)
}

func TestAuthorizationService_UpdateReplacesFieldsButKeepsCreator(t *testing.T) {
	svc, _ := newAuthorizationTestService(t)
	ctx := context.Background()

	id, err := svc.Add(ctx, "creator", validGrant())
	require.NoError(t, err)

	err = svc.Update(ctx, "editor", AuthorizationInput{
		ID:            id,
		Resource:      "db2",
		ResourceType:  "TABLE",
		Principal:     "analysts",
		PrincipalType: models.PrincipalTypeRole,
		Permission:    models.PermissionEditStart,
		CreateUserID:  "editor",
	})
	require.NoError(t, err)

	grant, err := svc.GetByIDForEdit(ctx, "editor", id)
	require.NoError(t, err)
	require.Equal(t, id, grant.ID)
	require.Equal(t, "db2", grant.Resource)
	require.Equal(t, "TABLE", grant.ResourceType)
	require.Equal(t, "analysts", grant.Principal)
	require.Equal(t, models.PrincipalTypeRole, grant.PrincipalType)
	require.Equal(t, models.PermissionEditStart, grant.Permission)
	require.Equal(t, "creator", grant.CreateUserID)
}

func TestAuthorizationService_UpdateRequiresID(t *testing.T) {
	svc, _ := newAuthorizationTestService(t)

	err := svc.Update(context.Background(), "admin-1", validGrant())
	require.ErrorIs(t, err, ErrAuthorizationInvalid)
}

func TestAuthorizationService_UpdateValidatesFields(t *testing.T) {
	svc, _ := newAuthorizationTestService(t)
	ctx := context.Background()

	id, err := svc.Add(ctx, "admin-1", validGrant())
	require.NoError(t, err)

	input := validGrant()
	input.ID = id
	input.Principal = ""
	require.ErrorIs(t, svc.Update(ctx, "admin-1", input), ErrAuthorizationInvalid)

	input = validGrant()
	input.ID = id
	input.Permission = models.PermissionMax + 1
	require.ErrorIs(t, svc.Update(ctx, "admin-1", input), ErrAuthorizationInvalid)

	grant, err := svc.GetByIDForEdit(ctx, "admin-1", id)
	require.NoError(t, err)
	require.Equal(t, "alice", grant.Principal)
	require.Equal(t, 2, grant.Permission)
}

func TestAuthorizationService_UpdateUnknownIDLeavesStoreUnchanged(t *testing.T) {
	svc, _ := newAuthorizationTestService(t)
	ctx := context.Background()

	id, err := svc.Add(ctx, "admin-1", validGrant())
	require.NoError(t, err)

	input := validGrant()
	input.ID = "missing"
	input.Resource = "db9"
	err = svc.Update(ctx, "admin-1", input)
	require.ErrorIs(t, err, ErrAuthorizationNotFound)

	page, err := svc.Query(ctx, "admin-1", PagingQuery{}, QueryContext{})
	require.NoError(t, err)
	require.Equal(t, int64(1), page.Total)
	require.Equal(t, id, page.Items[0].ID)
	require.Equal(t, "db1", page.Items[0].Resource)
}

func TestAuthorizationService_GetMissing(t *testing.T) {
	svc, _ := newAuthorizationTestService(t)
	ctx := context.Background()

	_, err := svc.GetByID(ctx, "admin-1", "missing", DefaultQueryContext())
	require.ErrorIs(t, err, ErrAuthorizationNotFound)

	_, err = svc.GetByIDForEdit(ctx, "admin-1", " ")
	require.ErrorIs(t, err, ErrAuthorizationNotFound)
}

func TestAuthorizationService_LabelsOnlyInViewMode(t *testing.T) {
	svc, _ := newAuthorizationTestService(t)
	ctx := context.Background()

	allID, err := svc.Add(ctx, "admin-1", AuthorizationInput{
		Resource:      "db1",
		ResourceType:  models.SchemaResourceType,
		Principal:     models.PrincipalAll,
		PrincipalType: models.PrincipalTypeAll,
		Permission:    models.PermissionReadStart,
	})
	require.NoError(t, err)
	anonID, err := svc.Add(ctx, "admin-1", AuthorizationInput{
		Resource:      "db1",
		ResourceType:  models.SchemaResourceType,
		Principal:     models.PrincipalAnonymous,
		PrincipalType: models.PrincipalTypeAnonymous,
		Permission:    models.PermissionNoneStart,
	})
	require.NoError(t, err)

	qc := QueryContext{PrincipalAllLabel: "Everyone", PrincipalAnonymousLabel: "Guests"}

	viewed, err := svc.GetByID(ctx, "admin-1", allID, qc)
	require.NoError(t, err)
	require.Equal(t, "Everyone", viewed.PrincipalLabel)
	require.Equal(t, models.PrincipalAll, viewed.Principal)

	viewed, err = svc.GetByID(ctx, "admin-1", anonID, qc)
	require.NoError(t, err)
	require.Equal(t, "Guests", viewed.PrincipalLabel)

	edited, err := svc.GetByIDForEdit(ctx, "admin-1", allID)
	require.NoError(t, err)
	require.Empty(t, edited.PrincipalLabel)

	page, err := svc.Query(ctx, "admin-1", PagingQuery{}, qc)
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	for _, item := range page.Items {
		require.NotEmpty(t, item.PrincipalLabel)
	}
}

func TestAuthorizationService_DeleteByIDs(t *testing.T) {
	svc, _ := newAuthorizationTestService(t)
	ctx := context.Background()

	id, err := svc.Add(ctx, "admin-1", validGrant())
	require.NoError(t, err)

	deleted, err := svc.DeleteByIDs(ctx, "admin-1", []string{id, "missing", " " + id + " ", ""})
	require.NoError(t, err)
	require.Equal(t, int64(1), deleted)

	_, err = svc.GetByID(ctx, "admin-1", id, DefaultQueryContext())
	require.ErrorIs(t, err, ErrAuthorizationNotFound)

	deleted, err = svc.DeleteByIDs(ctx, "admin-1", nil)
	require.NoError(t, err)
	require.Zero(t, deleted)

	deleted, err = svc.DeleteByIDs(ctx, "admin-1", []string{"missing"})
	require.NoError(t, err)
	require.Zero(t, deleted)
}

func TestAuthorizationService_QueryScopesAndPaging(t *testing.T) {
	svc, _ := newAuthorizationTestService(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		input := validGrant()
		input.Principal = fmt.Sprintf("user-%d", i)
		_, err := svc.Add(ctx, "admin-1", input)
		require.NoError(t, err)
	}
	other := validGrant()
	other.Resource = "db2"
	_, err := svc.Add(ctx, "admin-1", other)
	require.NoError(t, err)
	table := validGrant()
	table.ResourceType = "TABLE"
	_, err = svc.Add(ctx, "admin-1", table)
	require.NoError(t, err)

	all, err := svc.Query(ctx, "admin-1", PagingQuery{}, QueryContext{})
	require.NoError(t, err)
	require.Equal(t, int64(5), all.Total)
	require.Equal(t, 1, all.Page)
	require.Equal(t, defaultAuthorizationPageSize, all.PageSize)

	schemas, err := svc.Query(ctx, "admin-1", PagingQuery{}, DefaultQueryContext())
	require.NoError(t, err)
	require.Equal(t, int64(4), schemas.Total)

	scoped, err := svc.QueryForAppointResource(ctx, "admin-1", "db1", PagingQuery{}, QueryContext{})
	require.NoError(t, err)
	require.Equal(t, int64(4), scoped.Total)
	for _, item := range scoped.Items {
		require.Equal(t, "db1", item.Resource)
	}

	first, err := svc.QueryForAppointResource(ctx, "admin-1", "db1", PagingQuery{Page: 1, PageSize: 2}, DefaultQueryContext())
	require.NoError(t, err)
	second, err := svc.QueryForAppointResource(ctx, "admin-1", "db1", PagingQuery{Page: 2, PageSize: 2}, DefaultQueryContext())
	require.NoError(t, err)
	require.Equal(t, int64(3), first.Total)
	require.Len(t, first.Items, 2)
	require.Len(t, second.Items, 1)
	seen := map[string]struct{}{}
	for _, item := range append(first.Items, second.Items...) {
		seen[item.ID] = struct{}{}
	}
	require.Len(t, seen, 3)

	keyword, err := svc.Query(ctx, "admin-1", PagingQuery{Keyword: "USER-1"}, QueryContext{})
	require.NoError(t, err)
	require.Equal(t, int64(1), keyword.Total)
	require.Equal(t, "user-1", keyword.Items[0].Principal)
}

func TestAuthorizationService_DeleteByIDsLargeBatch(t *testing.T) {
	svc, _ := newAuthorizationTestService(t)
	ctx := context.Background()

	ids := make([]string, 0, 40000)
	for i := 0; i < 3; i++ {
		input := validGrant()
		input.Principal = fmt.Sprintf("user-%d", i)
		id, err := svc.Add(ctx, "admin-1", input)
		require.NoError(t, err)
		ids = append(ids, id)
	}
	for len(ids) < cap(ids) {
		ids = append(ids, fmt.Sprintf("missing-%d", len(ids)))
	}

	deleted, err := svc.DeleteByIDs(ctx, "admin-1", ids)
	require.NoError(t, err)
	require.Equal(t, int64(3), deleted)

	total, err := svc.Count(ctx)
	require.NoError(t, err)
	require.Zero(t, total)
}

func TestAuthorizationService_DeleteByIDsForAppointResource(t *testing.T) {
	svc, _ := newAuthorizationTestService(t)
	ctx := context.Background()

	inside, err := svc.Add(ctx, "admin-1", validGrant())
	require.NoError(t, err)
	other := validGrant()
	other.Resource = "db2"
	outside, err := svc.Add(ctx, "admin-1", other)
	require.NoError(t, err)

	_, err = svc.DeleteByIDsForAppointResource(ctx, "admin-1", " ", []string{inside})
	require.ErrorIs(t, err, ErrAuthorizationInvalid)

	deleted, err := svc.DeleteByIDsForAppointResource(ctx, "admin-1", "db1", []string{inside, outside})
	require.NoError(t, err)
	require.Equal(t, int64(1), deleted)

	_, err = svc.GetByIDForEdit(ctx, "admin-1", outside)
	require.NoError(t, err)
	_, err = svc.GetByIDForEdit(ctx, "admin-1", inside)
	require.ErrorIs(t, err, ErrAuthorizationNotFound)
}

func TestAuthorizationService_QueryPastLastPageIsEmpty(t *testing.T) {
	svc, _ := newAuthorizationTestService(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		input := validGrant()
		input.Principal = fmt.Sprintf("user-%d", i)
		_, err := svc.Add(ctx, "admin-1", input)
		require.NoError(t, err)
	}

	for _, page := range []int{2, math.MaxInt / 10, math.MaxInt} {
		got, err := svc.Query(ctx, "admin-1", PagingQuery{Page: page, PageSize: 20}, QueryContext{})
		require.NoError(t, err, "page %d", page)
		require.Equal(t, int64(3), got.Total)
		require.Empty(t, got.Items, "page %d", page)
		require.Positive(t, got.Page)
	}
}

func TestAuthorizationService_KeywordWildcardsMatchLiterally(t *testing.T) {
	svc, _ := newAuthorizationTestService(t)
	ctx := context.Background()

	for _, principal := range []string{"alice", "bob", "ann_ops", "50%off", "bang!"} {
		input := validGrant()
		input.Principal = principal
		_, err := svc.Add(ctx, "admin-1", input)
		require.NoError(t, err)
	}

	tests := []struct {
		keyword string
		want    []string
	}{
		{keyword: "_", want: []string{"ann_ops"}},
		{keyword: "%", want: []string{"50%off"}},
		{keyword: "!", want: []string{"bang!"}},
		{keyword: "n_o", want: []string{"ann_ops"}},
		{keyword: "ALI", want: []string{"alice"}},
	}
	for _, tt := range tests {
		page, err := svc.Query(ctx, "admin-1", PagingQuery{Keyword: tt.keyword}, QueryContext{})
		require.NoError(t, err, tt.keyword)

		principals := make([]string, 0, len(page.Items))
		for _, item := range page.Items {
			principals = append(principals, item.Principal)
		}
		require.ElementsMatch(t, tt.want, principals, tt.keyword)
	}
}

func TestIsUniqueConstraintError(t *testing.T) {
	require.False(t, isUniqueConstraintError(nil))
	require.True(t, isUniqueConstraintError(gorm.ErrDuplicatedKey))
	require.True(t, isUniqueConstraintError(errors.New("UNIQUE constraint failed: authorizations.resource")))
	require.False(t, isUniqueConstraintError(errors.New("duplicate column name: resource")))
	require.False(t, isUniqueConstraintError(errors.New("near \"duplicate\": syntax error")))
}

func TestAuthorizationService_QueryForAppointResourceRequiresResource(t *testing.T) {
	svc, _ := newAuthorizationTestService(t)

	_, err := svc.QueryForAppointResource(context.Background(), "admin-1", "  ", PagingQuery{}, QueryContext{})
	require.ErrorIs(t, err, ErrAuthorizationInvalid)
}

func TestAuthorizationService_MutationsAreAudited(t *testing.T) {
	svc, audit := newAuthorizationTestService(t)
	ctx := context.Background()

	id, err := svc.Add(ctx, "admin-1", validGrant())
	require.NoError(t, err)
	input := validGrant()
	input.ID = id
	input.Permission = models.PermissionReadStart
	require.NoError(t, svc.Update(ctx, "admin-1", input))
	_, err = svc.DeleteByIDs(ctx, "admin-1", []string{id})
	require.NoError(t, err)

	page, err := audit.List(ctx, AuditQuery{Actor: "admin-1"})
	require.NoError(t, err)
	require.Equal(t, int64(3), page.Total)

	actions := make([]string, 0, len(page.Items))
	for _, entry := range page.Items {
		actions = append(actions, entry.Action)
	}
	require.ElementsMatch(t, []string{"authorization.create", "authorization.update", "authorization.delete"}, actions)
}

func TestPagingQueryNormalise(t *testing.T) {
	p := PagingQuery{Page: -1, PageSize: 0, Keyword: "  x "}.normalise(0)
	require.Equal(t, 1, p.Page)
	require.Equal(t, defaultAuthorizationPageSize, p.PageSize)
	require.Equal(t, "x", p.Keyword)

	p = PagingQuery{Page: 3, PageSize: 1000}.normalise(50)
	require.Equal(t, maxAuthorizationPageSize, p.PageSize)
	require.Equal(t, 2*maxAuthorizationPageSize, p.offset())

	p = PagingQuery{}.normalise(50)
	require.Equal(t, 50, p.PageSize)

	p = PagingQuery{Page: math.MaxInt, PageSize: 20}.normalise(0)
	require.Equal(t, math.MaxInt/20, p.Page)
	require.Positive(t, p.offset())
}

func TestNormaliseIDs(t *testing.T) {
	require.Nil(t, normaliseIDs(nil))
	require.Equal(t, []string{"a", "b"}, normaliseIDs([]string{" a", "b", "a ", "", "  "}))
}

func TestAuthorizationService_LogsMutationsAndStorageFailures(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	svc, _ := newAuthorizationTestService(t, WithAuthorizationLogger(zap.New(core)))
	ctx := context.Background()

	id, err := svc.Add(ctx, "admin-1", validGrant())
	require.NoError(t, err)

	created := logs.FilterMessage("authorization created").All()
	require.Len(t, created, 1)
	require.Equal(t, id, created[0].ContextMap()["id"])
	require.Equal(t, "admin-1", created[0].ContextMap()["actor"])

	sqlDB, err := svc.db.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())

	_, err = svc.GetByIDForEdit(ctx, "admin-1", id)
	require.Error(t, err)
	require.NotErrorIs(t, err, ErrAuthorizationNotFound)
	require.Len(t, logs.FilterMessage("authorization storage failure").All(), 1)
}
