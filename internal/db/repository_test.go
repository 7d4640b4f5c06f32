package db

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/steemit/securehide/internal/models"
	"github.com/steemit/securehide/internal/securehide"
)

func openTestDB(t *testing.T, migrateUnlocks bool) *DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	d, err := Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", name)), "error")
	require.NoError(t, err)

	sqlDB, err := d.DB.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = d.Close() })

	if migrateUnlocks {
		require.NoError(t, d.Migrate(context.Background(), true))
	} else {
		require.NoError(t, d.DB.AutoMigrate(&models.User{}, &models.Post{}, &models.PostAction{}))
	}
	return d
}

type seed struct {
	db *gorm.DB
	t  *testing.T
}

func (s seed) user(id int64, name string) {
	s.t.Helper()
	require.NoError(s.t, s.db.Create(&models.User{ID: id, Username: name, Active: true}).Error)
}

func (s seed) post(p *models.Post) *models.Post {
	s.t.Helper()
	if p.PostType == 0 {
		p.PostType = models.PostTypeRegular
	}
	require.NoError(s.t, s.db.Create(p).Error)
	return p
}

func (s seed) action(postID, userID int64, typeID int16) *models.PostAction {
	s.t.Helper()
	a := &models.PostAction{PostID: postID, UserID: userID, PostActionTypeID: typeID}
	require.NoError(s.t, s.db.Create(a).Error)
	return a
}

func TestPostActionRepository_HasPrimaryLike(t *testing.T) {
	d := openTestDB(t, true)
	s := seed{db: d.DB, t: t}
	ctx := context.Background()
	s.user(1, "author")
	s.user(2, "reader")
	s.post(&models.Post{ID: 10, TopicID: 1, UserID: 1, PostNumber: 1})

	repo := NewPostActionRepository(NewRepository(d.DB))

	ok, err := repo.HasPrimaryLike(ctx, 10, 2)
	require.NoError(t, err)
	assert.False(t, ok)

	s.action(10, 2, models.PostActionTypeBookmark)
	ok, err = repo.HasPrimaryLike(ctx, 10, 2)
	require.NoError(t, err)
	assert.False(t, ok, "bookmarks are not likes")

	like := s.action(10, 2, models.PostActionTypeLike)
	ok, err = repo.HasPrimaryLike(ctx, 10, 2)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.HasPrimaryLike(ctx, 10, 1)
	require.NoError(t, err)
	assert.False(t, ok, "another user's like")

	require.NoError(t, d.DB.Delete(like).Error)
	ok, err = repo.HasPrimaryLike(ctx, 10, 2)
	require.NoError(t, err)
	assert.False(t, ok, "withdrawn like")
}

func TestPostRepository_HasNonDeletedRegularReply(t *testing.T) {
	d := openTestDB(t, true)
	s := seed{db: d.DB, t: t}
	ctx := context.Background()
	s.user(1, "author")
	s.user(2, "reader")
	hidden := s.post(&models.Post{ID: 10, TopicID: 1, UserID: 1, PostNumber: 1})

	repo := NewPostRepository(NewRepository(d.DB))
	check := func() bool {
		ok, err := repo.HasNonDeletedRegularReply(ctx, 1, 2, hidden.ID)
		require.NoError(t, err)
		return ok
	}

	assert.False(t, check())

	s.post(&models.Post{ID: 11, TopicID: 1, UserID: 2, PostNumber: 2, PostType: models.PostTypeWhisper})
	s.post(&models.Post{ID: 12, TopicID: 1, UserID: 2, PostNumber: 3, PostType: models.PostTypeSmallAction})
	assert.False(t, check(), "non-regular posts do not count")

	s.post(&models.Post{ID: 13, TopicID: 2, UserID: 2, PostNumber: 1})
	assert.False(t, check(), "reply in another topic")

	reply := s.post(&models.Post{ID: 14, TopicID: 1, UserID: 2, PostNumber: 4})
	assert.True(t, check())

	require.NoError(t, d.DB.Delete(reply).Error)
	assert.False(t, check(), "deleted reply")

	ok, err := repo.HasNonDeletedRegularReply(ctx, 1, 1, hidden.ID)
	require.NoError(t, err)
	assert.False(t, ok, "the hidden post itself is excluded")
}

func TestPostRepository_Lookups(t *testing.T) {
	d := openTestDB(t, true)
	s := seed{db: d.DB, t: t}
	ctx := context.Background()
	s.user(1, "author")
	s.post(&models.Post{
		ID: 10, TopicID: 1, UserID: 1, PostNumber: 1, Raw: "hi",
		SecureHideData: datatypes.JSON(`{"mode":"all","actions":["like"]}`),
	})
	deleted := s.post(&models.Post{ID: 11, TopicID: 1, UserID: 1, PostNumber: 2})
	require.NoError(t, d.DB.Delete(deleted).Error)

	repo := NewPostRepository(NewRepository(d.DB))

	post, err := repo.GetByID(ctx, 10)
	require.NoError(t, err)
	require.NotNil(t, post)
	require.NotNil(t, post.User)
	assert.Equal(t, "author", post.User.Username)

	post, err = repo.GetByID(ctx, 11)
	require.NoError(t, err)
	require.NotNil(t, post)
	assert.True(t, post.DeletedAt.Valid)

	post, err = repo.GetByID(ctx, 99)
	require.NoError(t, err)
	assert.Nil(t, post)

	post, err = repo.GetByTopicAndNumber(ctx, 1, 2)
	require.NoError(t, err)
	require.NotNil(t, post)
	assert.Equal(t, int64(11), post.ID)

	sp, err := repo.FindPost(ctx, 10)
	require.NoError(t, err)
	require.NotNil(t, sp)
	assert.Equal(t, int64(1), sp.AuthorID)
	assert.Equal(t, int64(1), sp.TopicID)
	meta, ok := securehide.ParseMetadata(sp.Metadata)
	require.True(t, ok)
	assert.Equal(t, securehide.ModeAll, meta.Requirement.Mode)

	sp, err = repo.FindPost(ctx, 11)
	require.NoError(t, err)
	require.NotNil(t, sp)
	assert.Nil(t, sp.Metadata)

	sp, err = repo.FindPost(ctx, 99)
	require.NoError(t, err)
	assert.Nil(t, sp)
}

func TestPostRepository_ListByTopic(t *testing.T) {
	d := openTestDB(t, true)
	s := seed{db: d.DB, t: t}
	ctx := context.Background()
	s.user(1, "author")
	for i := int32(5); i >= 1; i-- {
		s.post(&models.Post{TopicID: 7, UserID: 1, PostNumber: i})
	}
	s.post(&models.Post{TopicID: 8, UserID: 1, PostNumber: 1})

	repo := NewPostRepository(NewRepository(d.DB))

	page1, err := repo.ListByTopic(ctx, 7, 1, 2)
	require.NoError(t, err)
	require.Len(t, page1, 2)
	assert.Equal(t, int32(1), page1[0].PostNumber)
	assert.Equal(t, int32(2), page1[1].PostNumber)

	page3, err := repo.ListByTopic(ctx, 7, 3, 2)
	require.NoError(t, err)
	require.Len(t, page3, 1)
	assert.Equal(t, int32(5), page3[0].PostNumber)

	page0, err := repo.ListByTopic(ctx, 7, 0, 2)
	require.NoError(t, err)
	assert.Equal(t, page1[0].ID, page0[0].ID)
}

func TestUserRepository_GetByID(t *testing.T) {
	d := openTestDB(t, true)
	require.NoError(t, d.DB.Create(&models.User{ID: 3, Username: "mod", Moderator: true}).Error)

	repo := NewUserRepository(NewRepository(d.DB))

	user, err := repo.GetByID(context.Background(), 3)
	require.NoError(t, err)
	require.NotNil(t, user)
	assert.True(t, user.IsStaff())

	user, err = repo.GetByID(context.Background(), 4)
	require.NoError(t, err)
	assert.Nil(t, user)
}

func TestUnlockRepository_CreateIfAbsent(t *testing.T) {
	d := openTestDB(t, true)
	ctx := context.Background()
	repo := NewUnlockRepository(NewRepository(d.DB))
	first := time.Date(2026, 1, 15, 11, 0, 0, 0, time.UTC)

	found, err := repo.Find(ctx, 2, 10)
	require.NoError(t, err)
	assert.Nil(t, found)

	created, err := repo.CreateIfAbsent(ctx, 2, 10, securehide.Via("like"), first)
	require.NoError(t, err)
	require.NotNil(t, created)
	assert.Equal(t, securehide.Via("like"), created.UnlockedVia)

	again, err := repo.CreateIfAbsent(ctx, 2, 10, securehide.ViaAll, first.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, securehide.Via("like"), again.UnlockedVia, "existing unlock is kept")
	assert.WithinDuration(t, first, again.UnlockedAt, time.Second)

	var count int64
	require.NoError(t, d.DB.Model(&models.Unlock{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestUnlockRepository_ConcurrentCreate(t *testing.T) {
	d := openTestDB(t, true)
	repo := NewUnlockRepository(NewRepository(d.DB))
	at := time.Date(2026, 1, 15, 11, 0, 0, 0, time.UTC)

	const workers = 8
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := repo.CreateIfAbsent(context.Background(), 2, 10, securehide.ViaAll, at); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}

	var count int64
	require.NoError(t, d.DB.Model(&models.Unlock{}).Where("user_id = ? AND post_id = ?", 2, 10).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestUnlockRepository_TableMissing(t *testing.T) {
	d := openTestDB(t, false)
	ctx := context.Background()
	repo := NewUnlockRepository(NewRepository(d.DB))

	_, err := repo.Find(ctx, 1, 1)
	assert.True(t, errors.Is(err, securehide.ErrUnlocksUnavailable))

	_, err = repo.CreateIfAbsent(ctx, 1, 1, securehide.ViaAll, time.Now())
	assert.True(t, errors.Is(err, securehide.ErrUnlocksUnavailable))

	require.NoError(t, d.Migrate(ctx, false))

	_, err = repo.CreateIfAbsent(ctx, 1, 1, securehide.ViaAll, time.Now())
	require.NoError(t, err)
	assert.True(t, repo.Available(ctx))
}

func TestGormLogLevel(t *testing.T) {
	assert.NotEqual(t, gormLogLevel("debug"), gormLogLevel("error"))
	assert.Equal(t, gormLogLevel("INFO"), gormLogLevel("bogus"))
}
