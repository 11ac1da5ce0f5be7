package handlers

import (
	"errors"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	appErrors "github.com/charlesng35/grantstore/pkg/errors"
	"github.com/charlesng35/grantstore/pkg/response"
	appValidator "github.com/charlesng35/grantstore/pkg/validator"
)

// bindAndValidate decodes the JSON body into dest and checks its validate tags.
// On failure it writes a 400 and returns false.
func bindAndValidate[T any](c *gin.Context, dest *T) bool {
	if err := c.ShouldBindJSON(dest); err != nil {
		response.Error(c, appErrors.NewBadRequest("invalid JSON payload").WithInternal(err))
		return false
	}

	err := appValidator.ValidateStruct(dest)
	if err == nil {
		return true
	}

	var failures appValidator.ValidationErrors
	if errors.As(err, &failures) && len(failures) > 0 {
		response.Error(c, appErrors.NewBadRequest(failures.Error()))
	} else {
		response.Error(c, appErrors.NewBadRequest("invalid request payload").WithInternal(err))
	}
	return false
}

// parseIntQuery reads an integer query parameter; missing or malformed values yield fallback.
func parseIntQuery(c *gin.Context, key string, fallback int) int {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return fallback
	}
	if n, err := strconv.Atoi(raw); err == nil {
		return n
	}
	return fallback
}
