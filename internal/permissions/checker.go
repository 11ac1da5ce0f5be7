package permissions

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"gorm.io/gorm"

	"github.com/charlesng35/grantstore/internal/models"
)

// ErrUserInactive is returned when a deactivated account is evaluated.
var ErrUserInactive = errors.New("permission checker: user is inactive")

// Checker answers capability questions for users from their roles.
type Checker struct {
	db       *gorm.DB
	registry *Registry
}

// CheckerOption customises a Checker.
type CheckerOption func(*Checker)

// WithRegistry evaluates permissions against r instead of Default.
func WithRegistry(r *Registry) CheckerOption {
	return func(c *Checker) {
		if r != nil {
			c.registry = r
		}
	}
}

// NewChecker constructs a permission checker backed by the provided database.
func NewChecker(db *gorm.DB, opts ...CheckerOption) (*Checker, error) {
	if db == nil {
		return nil, errors.New("permission checker: db is required")
	}
	c := &Checker{db: db, registry: Default}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// subject is a loaded user together with the permissions its roles grant.
type subject struct {
	user *models.User
	held map[string]struct{}
}

func (s subject) has(id string) bool {
	_, ok := s.held[id]
	return ok
}

// Check reports whether the user holds permissionID and everything it depends on.
// Root users hold everything. Unknown and inactive users hold nothing.
func (c *Checker) Check(ctx context.Context, userID, permissionID string) (bool, error) {
	permissionID = strings.TrimSpace(permissionID)
	if permissionID == "" {
		return false, errors.New("permission checker: permission id is required")
	}

	subj, err := c.load(ctx, userID)
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		// tokens may outlive the account they were issued for
		return false, nil
	case err != nil:
		return false, err
	case !subj.user.IsActive:
		return false, nil
	case subj.user.IsRoot:
		return true, nil
	}

	if _, ok := c.registry.Lookup(permissionID); !ok {
		return false, fmt.Errorf("%w %q", ErrUnknownPermission, permissionID)
	}
	required, err := c.registry.Requirements(permissionID)
	if err != nil {
		return false, err
	}
	for _, dep := range append(required, permissionID) {
		if !subj.has(dep) {
			return false, nil
		}
	}
	return true, nil
}

// Permissions lists, sorted, every permission the user holds, implications
// included. Root users hold every registered permission.
func (c *Checker) Permissions(ctx context.Context, userID string) ([]string, error) {
	subj, err := c.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !subj.user.IsActive {
		return nil, ErrUserInactive
	}

	var ids []string
	if subj.user.IsRoot {
		for _, def := range c.registry.All() {
			ids = append(ids, def.ID)
		}
	} else {
		for id := range subj.held {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (c *Checker) load(ctx context.Context, userID string) (subject, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return subject{}, errors.New("permission checker: user id is required")
	}

	var user models.User
	err := c.db.WithContext(ctx).Preload("Roles.Permissions").First(&user, "id = ?", userID).Error
	if err != nil {
		return subject{}, fmt.Errorf("permission checker: load user: %w", err)
	}
	if user.IsRoot {
		return subject{user: &user}, nil
	}

	var granted []string
	for _, role := range user.Roles {
		for _, perm := range role.Permissions {
			granted = append(granted, perm.ID)
		}
	}
	held, err := c.registry.Expand(granted)
	if err != nil {
		return subject{}, err
	}
	return subject{user: &user, held: held}, nil
}
