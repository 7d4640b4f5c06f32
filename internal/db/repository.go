package db

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/steemit/securehide/internal/models"
	"github.com/steemit/securehide/internal/securehide"
)

// Repository provides database access methods
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new repository
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// exists runs SELECT EXISTS over the given subquery
func (r *Repository) exists(ctx context.Context, query *gorm.DB) (bool, error) {
	var found bool
	if err := r.db.WithContext(ctx).Raw("SELECT EXISTS (?)", query).Scan(&found).Error; err != nil {
		return false, err
	}
	return found, nil
}

// UserRepository provides user-related database operations
type UserRepository struct {
	*Repository
}

// NewUserRepository creates a new user repository
func NewUserRepository(repo *Repository) *UserRepository {
	return &UserRepository{Repository: repo}
}

// GetByID retrieves a user by ID
func (r *UserRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}

// PostRepository provides post-related database operations
type PostRepository struct {
	*Repository
}

// NewPostRepository creates a new post repository
func NewPostRepository(repo *Repository) *PostRepository {
	return &PostRepository{Repository: repo}
}

// GetByID retrieves a post by ID, including soft-deleted posts
func (r *PostRepository) GetByID(ctx context.Context, id int64) (*models.Post, error) {
	var post models.Post
	if err := r.db.WithContext(ctx).Unscoped().Preload("User").First(&post, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &post, nil
}

// GetByTopicAndNumber retrieves a post by its position in a topic, including soft-deleted posts
func (r *PostRepository) GetByTopicAndNumber(ctx context.Context, topicID int64, postNumber int32) (*models.Post, error) {
	var post models.Post
	if err := r.db.WithContext(ctx).Unscoped().Preload("User").
		Where("topic_id = ? AND post_number = ?", topicID, postNumber).
		First(&post).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &post, nil
}

// ListByTopic retrieves one page of non-deleted posts of a topic ordered by post number.
// Pages start at 1.
func (r *PostRepository) ListByTopic(ctx context.Context, topicID int64, page, limit int) ([]*models.Post, error) {
	if page < 1 {
		page = 1
	}

	var posts []*models.Post
	if err := r.db.WithContext(ctx).Preload("User").
		Where("topic_id = ?", topicID).
		Order("post_number ASC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&posts).Error; err != nil {
		return nil, err
	}
	return posts, nil
}

// FindPost implements securehide.PostStore
func (r *PostRepository) FindPost(ctx context.Context, id int64) (*securehide.Post, error) {
	post, err := r.GetByID(ctx, id)
	if err != nil || post == nil {
		return nil, err
	}
	return ToSecurePost(post), nil
}

// HasNonDeletedRegularReply implements securehide.ThreadPostStore
func (r *PostRepository) HasNonDeletedRegularReply(ctx context.Context, topicID, userID, excludingPostID int64) (bool, error) {
	query := r.db.Model(&models.Post{}).Select("1").
		Where("topic_id = ? AND user_id = ? AND id <> ? AND post_type = ?",
			topicID, userID, excludingPostID, models.PostTypeRegular)

	found, err := r.exists(ctx, query)
	if err != nil {
		return false, fmt.Errorf("failed to query replies: %w", err)
	}
	return found, nil
}

// ToSecurePost converts a post model into the evaluator's view of it
func ToSecurePost(p *models.Post) *securehide.Post {
	if p == nil {
		return nil
	}

	post := &securehide.Post{
		ID:       p.ID,
		AuthorID: p.UserID,
		TopicID:  p.TopicID,
	}
	if p.HasSecureHide() {
		post.Metadata = []byte(p.SecureHideData)
	}
	return post
}

// PostActionRepository provides post action database operations
type PostActionRepository struct {
	*Repository
}

// NewPostActionRepository creates a new post action repository
func NewPostActionRepository(repo *Repository) *PostActionRepository {
	return &PostActionRepository{Repository: repo}
}

// HasPrimaryLike implements securehide.ReactionStore
func (r *PostActionRepository) HasPrimaryLike(ctx context.Context, postID, userID int64) (bool, error) {
	query := r.db.Model(&models.PostAction{}).Select("1").
		Where("post_id = ? AND user_id = ? AND post_action_type_id = ?",
			postID, userID, models.PostActionTypeLike)

	found, err := r.exists(ctx, query)
	if err != nil {
		return false, fmt.Errorf("failed to query likes: %w", err)
	}
	return found, nil
}

// UnlockRepository stores unlocks in secure_hide_unlocks. While the table
// does not exist every call returns securehide.ErrUnlocksUnavailable.
type UnlockRepository struct {
	*Repository
	available atomic.Bool
}

// NewUnlockRepository creates a new unlock repository
func NewUnlockRepository(repo *Repository) *UnlockRepository {
	return &UnlockRepository{Repository: repo}
}

// Available reports whether the unlock table exists. A positive answer is remembered.
func (r *UnlockRepository) Available(ctx context.Context) bool {
	if r.available.Load() {
		return true
	}
	if !r.db.WithContext(ctx).Migrator().HasTable(&models.Unlock{}) {
		return false
	}
	r.available.Store(true)
	return true
}

// Find implements securehide.UnlockStore
func (r *UnlockRepository) Find(ctx context.Context, userID, postID int64) (*securehide.Unlock, error) {
	if !r.Available(ctx) {
		return nil, securehide.ErrUnlocksUnavailable
	}

	var row models.Unlock
	if err := r.db.WithContext(ctx).
		Where("user_id = ? AND post_id = ?", userID, postID).
		First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find unlock: %w", err)
	}
	return toSecureUnlock(&row), nil
}

// CreateIfAbsent implements securehide.UnlockStore. Concurrent callers for the
// same (user, post) all succeed and observe the single stored row.
func (r *UnlockRepository) CreateIfAbsent(ctx context.Context, userID, postID int64, via securehide.Via, at time.Time) (*securehide.Unlock, error) {
	if !r.Available(ctx) {
		return nil, securehide.ErrUnlocksUnavailable
	}

	row := &models.Unlock{
		UserID:      userID,
		PostID:      postID,
		UnlockedAt:  at,
		UnlockedVia: string(via),
	}
	if err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "post_id"}},
			DoNothing: true,
		}).
		Create(row).Error; err != nil {
		return nil, fmt.Errorf("failed to create unlock: %w", err)
	}

	stored, err := r.Find(ctx, userID, postID)
	if err != nil {
		return nil, err
	}
	if stored == nil {
		return toSecureUnlock(row), nil
	}
	return stored, nil
}

func toSecureUnlock(row *models.Unlock) *securehide.Unlock {
	return &securehide.Unlock{
		UserID:      row.UserID,
		PostID:      row.PostID,
		UnlockedAt:  row.UnlockedAt,
		UnlockedVia: securehide.Via(row.UnlockedVia),
	}
}
