package api

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/steemit/securehide/internal/db"
	"github.com/steemit/securehide/internal/models"
)

const topicRawSeparator = "-------------------------"

// postRaw handles GET /posts/:post_id/raw
func (r *Router) postRaw(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("post_id"), 10, 64)
	if err != nil {
		r.abortWithError(c, notFound())
		return
	}

	post, err := r.posts.GetByID(c.Request.Context(), id)
	if err != nil {
		r.abortWithError(c, err)
		return
	}
	r.renderRaw(c, post)
}

// topicPostRaw handles GET /raw/:topic_id/:post_number
func (r *Router) topicPostRaw(c *gin.Context) {
	topicID, err := strconv.ParseInt(c.Param("topic_id"), 10, 64)
	if err != nil {
		r.abortWithError(c, notFound())
		return
	}
	postNumber, err := strconv.ParseInt(c.Param("post_number"), 10, 32)
	if err != nil {
		r.abortWithError(c, notFound())
		return
	}

	post, err := r.posts.GetByTopicAndNumber(c.Request.Context(), topicID, int32(postNumber))
	if err != nil {
		r.abortWithError(c, err)
		return
	}
	r.renderRaw(c, post)
}

func (r *Router) renderRaw(c *gin.Context, post *models.Post) {
	guardian := guardianFrom(c)
	if !guardian.CanSeePost(post) {
		r.abortWithError(c, notFound())
		return
	}

	raw, err := r.filter.Filter(c.Request.Context(), guardian, db.ToSecurePost(post), post.Raw)
	if err != nil {
		r.abortWithError(c, err)
		return
	}
	c.String(http.StatusOK, raw)
}

// topicRaw handles GET /raw/:topic_id?page=N, one markdown section per visible post
func (r *Router) topicRaw(c *gin.Context) {
	topicID, err := strconv.ParseInt(c.Param("topic_id"), 10, 64)
	if err != nil {
		r.abortWithError(c, notFound())
		return
	}

	page := 1
	if p := c.Query("page"); p != "" {
		page, err = strconv.Atoi(p)
		if err != nil || page < 1 {
			r.abortWithError(c, invalidParams("page must be a positive integer"))
			return
		}
	}

	ctx := c.Request.Context()
	posts, err := r.posts.ListByTopic(ctx, topicID, page, r.cfg.TopicPageSize)
	if err != nil {
		r.abortWithError(c, err)
		return
	}
	if len(posts) == 0 && page == 1 {
		r.abortWithError(c, notFound())
		return
	}

	guardian := guardianFrom(c)
	var b strings.Builder
	for _, post := range posts {
		if !guardian.CanSeePost(post) {
			continue
		}

		raw, err := r.filter.Filter(ctx, guardian, db.ToSecurePost(post), post.Raw)
		if err != nil {
			r.abortWithError(c, err)
			return
		}

		username := ""
		if post.User != nil {
			username = post.User.Username
		}
		fmt.Fprintf(&b, "%s | %s | #%d\n\n%s\n\n%s\n\n",
			username, post.UpdatedAt.UTC().Format("2006-01-02 15:04:05 UTC"), post.PostNumber,
			raw, topicRawSeparator)
	}

	c.String(http.StatusOK, b.String())
}
