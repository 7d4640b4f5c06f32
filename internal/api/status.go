package api

import (
	"bytes"
	"encoding/json"

	"github.com/gin-gonic/gin"

	"github.com/steemit/securehide/internal/db"
	"github.com/steemit/securehide/internal/securehide"
)

// statusResult is the JSON-RPC view of a decision
type statusResult struct {
	PostID           int64               `json:"post_id"`
	Mode             securehide.Mode     `json:"mode"`
	Actions          []securehide.Action `json:"actions"`
	SatisfiedActions []securehide.Action `json:"satisfied_actions"`
	Allowed          bool                `json:"allowed"`
	VisibleReason    securehide.Cause    `json:"visible_reason"`
	UnlockedVia      securehide.Via      `json:"unlocked_via,omitempty"`
}

type reasonResult struct {
	PostID        int64            `json:"post_id"`
	VisibleReason securehide.Cause `json:"visible_reason"`
}

// parsePostID accepts {"post_id": N} or [N]
func parsePostID(params json.RawMessage) (int64, error) {
	params = bytes.TrimSpace(params)
	if len(params) == 0 {
		return 0, invalidParams("missing required parameter: post_id")
	}

	var postID int64
	if params[0] == '[' {
		var list []int64
		if err := json.Unmarshal(params, &list); err != nil || len(list) == 0 {
			return 0, invalidParams("expected [post_id]")
		}
		postID = list[0]
	} else {
		var obj struct {
			PostID int64 `json:"post_id"`
		}
		if err := json.Unmarshal(params, &obj); err != nil {
			return 0, invalidParams("invalid parameters format")
		}
		postID = obj.PostID
	}

	if postID <= 0 {
		return 0, invalidParams("post_id must be a positive integer")
	}
	return postID, nil
}

// getStatus handles secure_hide.get_status. The result is null when the
// feature is disabled or the post has nothing hidden.
func (r *Router) getStatus(c *gin.Context, params json.RawMessage) (interface{}, error) {
	postID, err := parsePostID(params)
	if err != nil {
		return nil, err
	}
	if !r.cfg.Enabled {
		return nil, nil
	}

	post, err := r.posts.GetByID(c.Request.Context(), postID)
	if err != nil {
		return nil, err
	}
	if post == nil {
		return nil, notFound()
	}
	guardian := guardianFrom(c)
	if !guardian.CanSeePost(post) {
		return nil, notFound()
	}

	d, err := r.evaluator.Status(c.Request.Context(), guardian, db.ToSecurePost(post))
	if err != nil || d == nil {
		return nil, err
	}

	return statusResult{
		PostID:           post.ID,
		Mode:             d.Mode,
		Actions:          d.Actions,
		SatisfiedActions: d.Satisfied,
		Allowed:          d.Allowed,
		VisibleReason:    d.Cause,
		UnlockedVia:      d.UnlockedVia,
	}, nil
}

// getReason handles secure_hide.get_reason
func (r *Router) getReason(c *gin.Context, params json.RawMessage) (interface{}, error) {
	postID, err := parsePostID(params)
	if err != nil {
		return nil, err
	}
	if !r.cfg.Enabled {
		return reasonResult{PostID: postID}, nil
	}

	post, err := r.posts.GetByID(c.Request.Context(), postID)
	if err != nil {
		return nil, err
	}
	if post == nil {
		return nil, notFound()
	}
	guardian := guardianFrom(c)
	if !guardian.CanSeePost(post) {
		return nil, notFound()
	}

	reason, err := r.evaluator.Reason(c.Request.Context(), guardian, db.ToSecurePost(post))
	if err != nil {
		return nil, err
	}
	return reasonResult{PostID: post.ID, VisibleReason: reason}, nil
}
