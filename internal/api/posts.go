package api

import (
	"net/http"
	"regexp"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/microcosm-cc/bluemonday"

	"github.com/steemit/securehide/internal/db"
	"github.com/steemit/securehide/internal/models"
	"github.com/steemit/securehide/internal/securehide"
)

// hiddenBlocksResponse is returned to viewers who may see the hidden content
type hiddenBlocksResponse struct {
	PostID           int64               `json:"post_id"`
	Mode             securehide.Mode     `json:"mode"`
	Actions          []securehide.Action `json:"actions"`
	SatisfiedActions []securehide.Action `json:"satisfied_actions"`
	VisibleReason    securehide.Cause    `json:"visible_reason"`
	Blocks           []securehide.Block  `json:"blocks"`
}

// lockedResponse is returned with 403 when the requirement is not met yet
type lockedResponse struct {
	Error            string              `json:"error"`
	PostID           int64               `json:"post_id"`
	Mode             securehide.Mode     `json:"mode"`
	Actions          []securehide.Action `json:"actions"`
	SatisfiedActions []securehide.Action `json:"satisfied_actions"`
}

var classNamePattern = regexp.MustCompile(`^[\w\- ]+$`)

// NewBlockPolicy returns the sanitizer applied to hidden block HTML.
// It is the user generated content policy plus class names used by cooked posts.
func NewBlockPolicy() *bluemonday.Policy {
	p := bluemonday.UGCPolicy()
	p.AllowAttrs("class").Matching(classNamePattern).Globally()
	return p
}

// showHiddenBlocks handles GET /secure-hide/posts/:post_id
func (r *Router) showHiddenBlocks(c *gin.Context) {
	if !r.cfg.Enabled {
		r.abortWithError(c, notFound())
		return
	}

	guardian := guardianFrom(c)
	if guardian.Anonymous() {
		r.abortWithError(c, notLoggedIn())
		return
	}

	post, err := r.loadPost(c, c.Param("post_id"))
	if err != nil {
		r.abortWithError(c, err)
		return
	}

	sp := db.ToSecurePost(post)
	meta, ok := securehide.ParseMetadata(sp.Metadata)
	if !ok {
		r.abortWithError(c, notFound())
		return
	}

	decision, err := r.evaluator.Status(c.Request.Context(), guardian, sp)
	if err != nil {
		r.abortWithError(c, err)
		return
	}

	if !decision.Allowed {
		c.JSON(http.StatusForbidden, lockedResponse{
			Error:            notUnlockedMessage,
			PostID:           post.ID,
			Mode:             decision.Mode,
			Actions:          decision.Actions,
			SatisfiedActions: decision.Satisfied,
		})
		return
	}

	c.JSON(http.StatusOK, hiddenBlocksResponse{
		PostID:           post.ID,
		Mode:             decision.Mode,
		Actions:          decision.Actions,
		SatisfiedActions: decision.Satisfied,
		VisibleReason:    decision.Cause,
		Blocks:           r.sanitizeBlocks(meta.Blocks),
	})
}

// loadPost resolves a post the current viewer is allowed to see
func (r *Router) loadPost(c *gin.Context, rawID string) (*models.Post, error) {
	id, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil || id <= 0 {
		return nil, notFound()
	}

	post, err := r.posts.GetByID(c.Request.Context(), id)
	if err != nil {
		return nil, err
	}
	if post == nil {
		return nil, notFound()
	}
	if !guardianFrom(c).CanSeePost(post) {
		return nil, notFound()
	}
	return post, nil
}

func (r *Router) sanitizeBlocks(blocks []securehide.Block) []securehide.Block {
	out := make([]securehide.Block, len(blocks))
	for i, b := range blocks {
		out[i] = b
		if r.cfg.SanitizeBlocks {
			out[i].HTML = r.policy.Sanitize(b.HTML)
		}
	}
	return out
}
