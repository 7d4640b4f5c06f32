// Package securehide decides whether a viewer may see the hidden regions of a
// post and remembers positive decisions as unlocks.
package securehide

import (
	"context"
	"errors"
	"time"
)

// Post is the subset of a forum post the evaluator needs.
type Post struct {
	ID       int64
	AuthorID int64
	TopicID  int64
	// Metadata is the raw hidden-content blob written by the content extractor.
	Metadata []byte
}

// Via records which action produced an unlock.
type Via string

// ViaAll marks an unlock granted under ModeAll.
const ViaAll Via = "all"

// Unlock is the durable record that a user satisfied a post's requirement.
type Unlock struct {
	UserID      int64
	PostID      int64
	UnlockedAt  time.Time
	UnlockedVia Via
}

// ErrUnlocksUnavailable is returned by an UnlockStore whose backing table is missing.
var ErrUnlocksUnavailable = errors.New("secure hide unlocks are unavailable")

// Guardian is the principal a decision is made for.
type Guardian interface {
	IsStaff() bool
	// UserID returns false for anonymous viewers.
	UserID() (int64, bool)
}

// PostStore loads posts by id. A missing post is (nil, nil).
type PostStore interface {
	FindPost(ctx context.Context, id int64) (*Post, error)
}

// ReactionStore answers whether a user placed a primary like on a post.
type ReactionStore interface {
	HasPrimaryLike(ctx context.Context, postID, userID int64) (bool, error)
}

// ThreadPostStore answers whether a user replied in a topic.
type ThreadPostStore interface {
	HasNonDeletedRegularReply(ctx context.Context, topicID, userID, excludingPostID int64) (bool, error)
}

// UnlockStore persists unlocks. CreateIfAbsent must be a single atomic insert
// that treats an existing (user, post) row as success.
type UnlockStore interface {
	Find(ctx context.Context, userID, postID int64) (*Unlock, error)
	CreateIfAbsent(ctx context.Context, userID, postID int64, via Via, at time.Time) (*Unlock, error)
}
