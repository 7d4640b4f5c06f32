package api

import (
	"context"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/steemit/securehide/internal/models"
	"github.com/steemit/securehide/internal/securehide"
)

// UserIDHeader carries the authenticated forum user id. It is set by the
// forum in front of this service and must not be reachable by clients directly.
const UserIDHeader = "X-User-Id"

const guardianKey = "guardian"

// UserFinder loads forum users
type UserFinder interface {
	GetByID(ctx context.Context, id int64) (*models.User, error)
}

// Guardian is the viewer of a request. A zero Guardian is anonymous.
type Guardian struct {
	user *models.User
}

var _ securehide.Guardian = (*Guardian)(nil)

// NewGuardian creates a guardian for user. A nil user is anonymous.
func NewGuardian(user *models.User) *Guardian {
	return &Guardian{user: user}
}

// IsStaff implements securehide.Guardian
func (g *Guardian) IsStaff() bool {
	return g != nil && g.user.IsStaff()
}

// UserID implements securehide.Guardian
func (g *Guardian) UserID() (int64, bool) {
	if g == nil || g.user == nil {
		return 0, false
	}
	return g.user.ID, true
}

// Anonymous reports whether no user is signed in
func (g *Guardian) Anonymous() bool {
	_, ok := g.UserID()
	return !ok
}

// CanSeePost reports whether the viewer may see post at all.
// Deleted posts and whispers are staff only.
func (g *Guardian) CanSeePost(post *models.Post) bool {
	if post == nil {
		return false
	}
	if post.DeletedAt.Valid || post.PostType == models.PostTypeWhisper {
		return g.IsStaff()
	}
	return true
}

// guardianMiddleware resolves the viewer from UserIDHeader. Unknown, inactive or
// malformed ids are treated as anonymous.
func (r *Router) guardianMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		guardian := NewGuardian(nil)

		if header := c.GetHeader(UserIDHeader); header != "" {
			id, err := strconv.ParseInt(header, 10, 64)
			if err != nil || id <= 0 {
				r.logger.Debug("Ignoring malformed user id header", zap.String("value", header))
			} else {
				user, err := r.users.GetByID(c.Request.Context(), id)
				if err != nil {
					r.logger.Error("Failed to load user", zap.Int64("user_id", id), zap.Error(err))
					r.abortWithError(c, err)
					return
				}
				if user != nil && user.Active {
					guardian = NewGuardian(user)
				}
			}
		}

		c.Set(guardianKey, guardian)
		c.Next()
	}
}

func guardianFrom(c *gin.Context) *Guardian {
	if v, ok := c.Get(guardianKey); ok {
		if g, ok := v.(*Guardian); ok {
			return g
		}
	}
	return NewGuardian(nil)
}
