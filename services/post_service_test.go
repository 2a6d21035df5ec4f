package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shdlab/department-api/models"
)

func TestCreateAndGetPost(t *testing.T) {
	db := newTestDB(t)
	svc := NewPostService(db)
	owner := seedUser(t, db, "owner@example.edu", models.PermissionEditor)
	seedCategory(t, db, "news")
	image := seedFile(t, db, "photo.png")
	image.FileType = models.FileTypeImages
	require.NoError(t, db.Save(image).Error)
	doc := seedFile(t, db, "syllabus.pdf")

	id, err := svc.Create(CreatePostInput{
		Title:        "Welcome Week",
		Content:      "<p>schedule</p>",
		OwnerID:      owner.ID,
		CategoryName: "news",
		Status:       models.PostStatusPublished,
		Hashtags:     []string{"orientation", "2026"},
		FileIDs:      []uint{image.ID, doc.ID},
	})
	require.NoError(t, err)
	require.NotZero(t, id)

	detail, err := svc.Get(id)
	require.NoError(t, err)
	assert.Equal(t, "Welcome Week", detail.Title)
	assert.Equal(t, owner.ID, detail.UserID)
	assert.ElementsMatch(t, []string{"orientation", "2026"}, detail.HashtagNames)
	require.Len(t, detail.Images, 1)
	assert.Equal(t, image.ID, detail.Images[0].ID)
	require.Len(t, detail.Attachments, 1)
	assert.Equal(t, doc.ID, detail.Attachments[0].ID)
}

func TestCreatePostUnknownCategory(t *testing.T) {
	db := newTestDB(t)
	svc := NewPostService(db)
	owner := seedUser(t, db, "owner@example.edu", models.PermissionEditor)

	_, err := svc.Create(CreatePostInput{
		Title:        "Lost",
		Content:      "x",
		OwnerID:      owner.ID,
		CategoryName: "no-such-category",
		Status:       models.PostStatusDraft,
	})
	assert.ErrorIs(t, err, ErrInvalidCategory)

	var count int64
	require.NoError(t, db.Model(&models.Post{}).Count(&count).Error)
	assert.Zero(t, count, "rolled back create must leave no post behind")
}

func TestCreatePostSkipsUnresolvableFileIDs(t *testing.T) {
	db := newTestDB(t)
	svc := NewPostService(db)
	owner := seedUser(t, db, "owner@example.edu", models.PermissionEditor)
	seedCategory(t, db, "news")
	real := seedFile(t, db, "real.pdf")

	id, err := svc.Create(CreatePostInput{
		Title:        "Partial",
		Content:      "x",
		OwnerID:      owner.ID,
		CategoryName: "news",
		Status:       models.PostStatusDraft,
		FileIDs:      []uint{real.ID, 9999},
	})
	require.NoError(t, err, "unresolvable file ids are skipped, not fatal")

	detail, err := svc.Get(id)
	require.NoError(t, err)
	require.Len(t, detail.Attachments, 1)
	assert.Equal(t, real.ID, detail.Attachments[0].ID)
}

func TestGetIncrementsClickCount(t *testing.T) {
	db := newTestDB(t)
	svc := NewPostService(db)
	owner := seedUser(t, db, "owner@example.edu", models.PermissionEditor)
	seedCategory(t, db, "news")

	id, err := svc.Create(CreatePostInput{
		Title: "Counter", Content: "x", OwnerID: owner.ID,
		CategoryName: "news", Status: models.PostStatusPublished,
	})
	require.NoError(t, err)

	first, err := svc.Get(id)
	require.NoError(t, err)
	assert.EqualValues(t, 1, first.ClickCount)

	second, err := svc.Get(id)
	require.NoError(t, err)
	assert.EqualValues(t, 2, second.ClickCount)

	_, err = svc.Get(9999)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateReplacesHashtagSet(t *testing.T) {
	db := newTestDB(t)
	svc := NewPostService(db)
	owner := seedUser(t, db, "owner@example.edu", models.PermissionEditor)
	seedCategory(t, db, "news")

	id, err := svc.Create(CreatePostInput{
		Title: "Tagged", Content: "x", OwnerID: owner.ID,
		CategoryName: "news", Status: models.PostStatusDraft,
		Hashtags: []string{"old", "shared"},
	})
	require.NoError(t, err)

	newTags := []string{"shared", "fresh"}
	require.NoError(t, svc.Update(id, PostPatch{Hashtags: &newTags}))

	detail, err := svc.Get(id)
	require.NoError(t, err)
	assert.ElementsMatch(t, newTags, detail.HashtagNames)

	// Replaced tags survive globally; only the join rows change.
	var orphan models.Hashtag
	require.NoError(t, db.Where("tag_name = ?", "old").First(&orphan).Error)

	empty := []string{}
	require.NoError(t, svc.Update(id, PostPatch{Hashtags: &empty}))
	detail, err = svc.Get(id)
	require.NoError(t, err)
	assert.Empty(t, detail.HashtagNames)
}

func TestHashtagUpsertIsIdempotent(t *testing.T) {
	db := newTestDB(t)
	svc := NewPostService(db)
	owner := seedUser(t, db, "owner@example.edu", models.PermissionEditor)
	seedCategory(t, db, "news")

	for i := 0; i < 2; i++ {
		_, err := svc.Create(CreatePostInput{
			Title: "Shares a tag", Content: "x", OwnerID: owner.ID,
			CategoryName: "news", Status: models.PostStatusDraft,
			Hashtags: []string{"common", " common ", ""},
		})
		require.NoError(t, err)
	}

	var count int64
	require.NoError(t, db.Model(&models.Hashtag{}).
		Where("tag_name = ?", "common").Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestUpdateReplacesFileSet(t *testing.T) {
	db := newTestDB(t)
	svc := NewPostService(db)
	owner := seedUser(t, db, "owner@example.edu", models.PermissionEditor)
	seedCategory(t, db, "news")
	a := seedFile(t, db, "a.pdf")
	b := seedFile(t, db, "b.pdf")

	id, err := svc.Create(CreatePostInput{
		Title: "Files", Content: "x", OwnerID: owner.ID,
		CategoryName: "news", Status: models.PostStatusDraft,
		FileIDs: []uint{a.ID},
	})
	require.NoError(t, err)

	replacement := []uint{b.ID}
	require.NoError(t, svc.Update(id, PostPatch{FileIDs: &replacement}))

	var detached models.File
	require.NoError(t, db.First(&detached, a.ID).Error)
	assert.Nil(t, detached.PostID, "replaced file returns to the holding area")

	var attached models.File
	require.NoError(t, db.First(&attached, b.ID).Error)
	require.NotNil(t, attached.PostID)
	assert.Equal(t, id, *attached.PostID)

	// An empty list detaches everything without deleting any row.
	empty := []uint{}
	require.NoError(t, svc.Update(id, PostPatch{FileIDs: &empty}))
	var total int64
	require.NoError(t, db.Model(&models.File{}).Count(&total).Error)
	assert.EqualValues(t, 2, total)
	var stillAttached int64
	require.NoError(t, db.Model(&models.File{}).Where("post_id = ?", id).Count(&stillAttached).Error)
	assert.Zero(t, stillAttached)
}

func TestUpdateBasicFieldsRefreshAnnouncementDate(t *testing.T) {
	db := newTestDB(t)
	svc := NewPostService(db)
	owner := seedUser(t, db, "owner@example.edu", models.PermissionEditor)
	seedCategory(t, db, "news")

	id, err := svc.Create(CreatePostInput{
		Title: "Dated", Content: "x", OwnerID: owner.ID,
		CategoryName: "news", Status: models.PostStatusDraft,
	})
	require.NoError(t, err)

	old := time.Now().Add(-48 * time.Hour)
	require.NoError(t, db.Model(&models.Post{}).Where("id = ?", id).
		UpdateColumn("announcement_date", old).Error)

	title := "Dated v2"
	require.NoError(t, svc.Update(id, PostPatch{Title: &title}))

	var post models.Post
	require.NoError(t, db.First(&post, id).Error)
	assert.True(t, post.AnnouncementDate.After(old.Add(time.Hour)))

	assert.ErrorIs(t, svc.Update(9999, PostPatch{Title: &title}), ErrNotFound)
}

func TestListFiltersAndOrdering(t *testing.T) {
	db := newTestDB(t)
	svc := NewPostService(db)
	alice := seedUser(t, db, "alice@example.edu", models.PermissionEditor)
	bob := seedUser(t, db, "bob@example.edu", models.PermissionEditor)
	seedCategory(t, db, "news")
	seedCategory(t, db, "guides")

	mk := func(title, category, status string, ownerID uint, clicks int64) uint {
		id, err := svc.Create(CreatePostInput{
			Title: title, Content: "x", OwnerID: ownerID,
			CategoryName: category, Status: status,
		})
		require.NoError(t, err)
		require.NoError(t, db.Model(&models.Post{}).Where("id = ?", id).
			UpdateColumn("click_count", clicks).Error)
		return id
	}

	popular := mk("Campus Map", "guides", models.PostStatusPublished, alice.ID, 50)
	mk("Exam Schedule", "news", models.PostStatusPublished, alice.ID, 5)
	mk("Draft Notes", "news", models.PostStatusDraft, bob.ID, 0)

	t.Run("title substring is case-insensitive", func(t *testing.T) {
		page, err := svc.List(PostFilter{TitleLike: "campus"}, "", 10, 0)
		require.NoError(t, err)
		require.EqualValues(t, 1, page.Total)
		assert.Equal(t, popular, page.Rows[0].ID)
	})

	t.Run("filters combine with AND", func(t *testing.T) {
		page, err := svc.List(PostFilter{
			Categories: []string{"news"},
			OwnerID:    alice.ID,
			Status:     models.PostStatusPublished,
		}, "", 10, 0)
		require.NoError(t, err)
		require.EqualValues(t, 1, page.Total)
		assert.Equal(t, "Exam Schedule", page.Rows[0].Title)
	})

	t.Run("click_count ordering", func(t *testing.T) {
		page, err := svc.List(PostFilter{}, "click_count", 10, 0)
		require.NoError(t, err)
		require.EqualValues(t, 3, page.Total)
		assert.Equal(t, popular, page.Rows[0].ID)
	})

	t.Run("unknown order column falls back to the default", func(t *testing.T) {
		page, err := svc.List(PostFilter{}, "title; DROP TABLE posts", 10, 0)
		require.NoError(t, err)
		assert.EqualValues(t, 3, page.Total)
	})

	t.Run("total counts beyond the page window", func(t *testing.T) {
		page, err := svc.List(PostFilter{}, "", 2, 0)
		require.NoError(t, err)
		assert.EqualValues(t, 3, page.Total)
		assert.Len(t, page.Rows, 2)
	})
}

func TestListBulkLoadsAssociations(t *testing.T) {
	db := newTestDB(t)
	svc := NewPostService(db)
	owner := seedUser(t, db, "owner@example.edu", models.PermissionEditor)
	seedCategory(t, db, "news")
	doc := seedFile(t, db, "plan.pdf")

	tagged, err := svc.Create(CreatePostInput{
		Title: "Tagged", Content: "x", OwnerID: owner.ID,
		CategoryName: "news", Status: models.PostStatusPublished,
		Hashtags: []string{"alpha"}, FileIDs: []uint{doc.ID},
	})
	require.NoError(t, err)
	bare, err := svc.Create(CreatePostInput{
		Title: "Bare", Content: "x", OwnerID: owner.ID,
		CategoryName: "news", Status: models.PostStatusPublished,
	})
	require.NoError(t, err)

	page, err := svc.List(PostFilter{}, "", 10, 0)
	require.NoError(t, err)
	require.Len(t, page.Rows, 2)

	byID := map[uint]PostSummary{}
	for _, row := range page.Rows {
		byID[row.ID] = row
	}
	assert.Equal(t, []string{"alpha"}, byID[tagged].HashtagNames)
	require.Len(t, byID[tagged].AttachedFile, 1)
	assert.NotNil(t, byID[bare].HashtagNames, "empty associations are empty slices, not null")
	assert.Empty(t, byID[bare].HashtagNames)
	assert.NotNil(t, byID[bare].AttachedFile)
	assert.Empty(t, byID[bare].AttachedFile)
}

func TestDeleteDetachesFilesAndKeepsTags(t *testing.T) {
	db := newTestDB(t)
	svc := NewPostService(db)
	owner := seedUser(t, db, "owner@example.edu", models.PermissionEditor)
	seedCategory(t, db, "news")
	doc := seedFile(t, db, "keep.pdf")

	id, err := svc.Create(CreatePostInput{
		Title: "Doomed", Content: "x", OwnerID: owner.ID,
		CategoryName: "news", Status: models.PostStatusPublished,
		Hashtags: []string{"survivor"}, FileIDs: []uint{doc.ID},
	})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(id))

	_, err = svc.Get(id)
	assert.ErrorIs(t, err, ErrNotFound)

	var file models.File
	require.NoError(t, db.First(&file, doc.ID).Error)
	assert.Nil(t, file.PostID, "files outlive their post")

	var tag models.Hashtag
	require.NoError(t, db.Where("tag_name = ?", "survivor").First(&tag).Error)

	var joins int64
	require.NoError(t, db.Table("post_hashtags").Where("post_id = ?", id).Count(&joins).Error)
	assert.Zero(t, joins)

	assert.ErrorIs(t, svc.Delete(id), ErrNotFound)
}

func TestOwner(t *testing.T) {
	db := newTestDB(t)
	svc := NewPostService(db)
	owner := seedUser(t, db, "owner@example.edu", models.PermissionEditor)
	seedCategory(t, db, "news")

	id, err := svc.Create(CreatePostInput{
		Title: "Mine", Content: "x", OwnerID: owner.ID,
		CategoryName: "news", Status: models.PostStatusDraft,
	})
	require.NoError(t, err)

	got, err := svc.Owner(id)
	require.NoError(t, err)
	assert.Equal(t, owner.ID, got)

	_, err = svc.Owner(9999)
	assert.ErrorIs(t, err, ErrNotFound)
}
