package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/velocitymobility/fleetops-backend/internal/authz"
	"github.com/velocitymobility/fleetops-backend/internal/middleware"
	"github.com/velocitymobility/fleetops-backend/rider"
)

// currentRider resolves the authenticated subject to a rider row and
// its capability set. Operator flags come from the rider record, never
// from anything the client sent. On failure the response has already
// been written.
func (a *API) currentRider(c *gin.Context) (*rider.Rider, authz.Role, bool) {
	logger := middleware.GetLogger(c)

	sub, ok := a.cfg.Auth.Subject(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"code": "UNAUTHORIZED", "message": "Authentication required"})
		return nil, authz.Role{}, false
	}

	r, err := a.cfg.Riders.GetRiderByAuth0ID(c, sub)
	if errors.Is(err, rider.ErrNotFound) {
		r, err = a.cfg.Riders.CreateRider(c, sub)
		if err == nil {
			a.enrichProfile(c, sub)
		}
	}
	if err != nil {
		logger.ErrorContext(c, "failed to resolve rider", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return nil, authz.Role{}, false
	}

	return r, authz.RoleFor(r.IsOperator, r.IsOperatorView), true
}

// requireCapability re-validates authorisation at the fleet-core
// boundary regardless of any upstream route guard.
func (a *API) requireCapability(c *gin.Context, role authz.Role, action authz.Action) bool {
	if !role.Can(action) {
		c.JSON(http.StatusForbidden, gin.H{"code": "FORBIDDEN", "message": "Caller lacks the required capability"})
		return false
	}
	return true
}

// enrichProfile backfills email/name on a fresh rider row from the
// identity provider's userinfo endpoint.
func (a *API) enrichProfile(c *gin.Context, sub string) {
	if a.cfg.IdentityProvider == nil {
		return
	}

	token := strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer ")
	if token == "" {
		return
	}

	info, err := a.cfg.IdentityProvider.GetUserInfo(c, token)
	if err != nil || info.Sub != sub {
		return
	}
	if err := a.cfg.Riders.UpdateProfile(c, sub, info.Email, info.Name); err != nil {
		middleware.GetLogger(c).WarnContext(c, "failed to enrich rider profile", "error", err)
	}
}
