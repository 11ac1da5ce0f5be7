package services

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	apperrors "github.com/charlesng35/grantstore/pkg/errors"
)

var (
	// ErrAuthorizationInvalid is returned when a grant fails input validation.
	ErrAuthorizationInvalid = apperrors.New("AUTHORIZATION_INVALID", "Invalid authorization", http.StatusBadRequest)
	// ErrAuthorizationNotFound indicates the referenced grant does not exist.
	ErrAuthorizationNotFound = apperrors.New("AUTHORIZATION_NOT_FOUND", "Authorization not found", http.StatusNotFound)
	// ErrAuthorizationExists is returned when the same principal already holds a grant on the resource.
	ErrAuthorizationExists = apperrors.New("AUTHORIZATION_EXISTS", "Authorization already exists for this principal and resource", http.StatusConflict)
)

// isUniqueConstraintError detects database uniqueness constraint violations across vendors.
func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr != nil && pgErr.Code == "23505" {
		return true
	}

	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) && myErr != nil && myErr.Number == 1062 {
		return true
	}

	// sqlite reports "UNIQUE constraint failed: ..."
	return strings.Contains(strings.ToLower(err.Error()), "unique constraint failed")
}
