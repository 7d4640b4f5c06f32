package securehide

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// Oracle answers whether a viewer has already performed an action.
// It only reads.
type Oracle struct {
	reactions ReactionStore
	replies   ThreadPostStore
}

// NewOracle creates a new oracle
func NewOracle(reactions ReactionStore, replies ThreadPostStore) *Oracle {
	return &Oracle{reactions: reactions, replies: replies}
}

// Satisfies reports whether userID has performed action on post.
// Unknown actions are never satisfied.
func (o *Oracle) Satisfies(ctx context.Context, post *Post, userID int64, action Action) (bool, error) {
	switch action {
	case ActionLike:
		ok, err := o.reactions.HasPrimaryLike(ctx, post.ID, userID)
		if err != nil {
			return false, fmt.Errorf("failed to check like: %w", err)
		}
		return ok, nil
	case ActionReply:
		ok, err := o.replies.HasNonDeletedRegularReply(ctx, post.TopicID, userID, post.ID)
		if err != nil {
			return false, fmt.Errorf("failed to check reply: %w", err)
		}
		return ok, nil
	default:
		return false, nil
	}
}

// SatisfiedSet checks every action concurrently. The result is indexed like
// actions, independent of completion order.
func (o *Oracle) SatisfiedSet(ctx context.Context, post *Post, userID int64, actions []Action) ([]bool, error) {
	results := make([]bool, len(actions))

	g, gCtx := errgroup.WithContext(ctx)
	for i, action := range actions {
		i, action := i, action
		g.Go(func() error {
			ok, err := o.Satisfies(gCtx, post, userID, action)
			if err != nil {
				return err
			}
			results[i] = ok
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return results, nil
}
