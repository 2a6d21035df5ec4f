package services

import (
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shdlab/department-api/models"
)

func TestRegisterUpload(t *testing.T) {
	db := newTestDB(t)
	svc := NewFileService(db, t.TempDir())

	file, err := svc.RegisterUpload(strings.NewReader("hello"), "report.pdf", models.FileTypeAttachments)
	require.NoError(t, err)
	assert.Equal(t, "report.pdf", file.OriginalFilename)
	assert.Equal(t, models.FileTypeAttachments, file.FileType)
	assert.Nil(t, file.PostID, "fresh uploads sit in the holding area")
	assert.True(t, strings.HasPrefix(file.FilePath, "attachments/"))

	data, err := os.ReadFile(svc.AbsPath(file))
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))
}

func TestRegisterUploadSanitizesFilename(t *testing.T) {
	db := newTestDB(t)
	svc := NewFileService(db, t.TempDir())

	cases := map[string]string{
		"../../etc/passwd":        "passwd",
		`C:\Users\x\evil.exe`:     "evil.exe",
		"..":                      "file",
		"  ":                      "file",
		"plain name with spaces ": "plain name with spaces",
	}
	for input, want := range cases {
		file, err := svc.RegisterUpload(strings.NewReader("x"), input, models.FileTypeFiles)
		require.NoError(t, err, input)
		assert.Equal(t, want, file.OriginalFilename, input)
		assert.False(t, strings.Contains(file.FilePath, ".."), input)
	}
}

func TestRegisterUploadRejectsUnknownSubfolder(t *testing.T) {
	db := newTestDB(t)
	svc := NewFileService(db, t.TempDir())

	_, err := svc.RegisterUpload(strings.NewReader("x"), "a.txt", "secrets")
	assert.ErrorIs(t, err, ErrInvalidFileType)
}

func TestUploadsGetDistinctStoredNames(t *testing.T) {
	db := newTestDB(t)
	svc := NewFileService(db, t.TempDir())

	a, err := svc.RegisterUpload(strings.NewReader("one"), "same.txt", models.FileTypeFiles)
	require.NoError(t, err)
	b, err := svc.RegisterUpload(strings.NewReader("two"), "same.txt", models.FileTypeFiles)
	require.NoError(t, err)

	assert.NotEqual(t, a.FilePath, b.FilePath)
	one, err := os.ReadFile(svc.AbsPath(a))
	require.NoError(t, err)
	assert.Equal(t, "one", string(one))
}

func TestDeleteRemovesRowAndObject(t *testing.T) {
	db := newTestDB(t)
	svc := NewFileService(db, t.TempDir())

	file, err := svc.RegisterUpload(strings.NewReader("x"), "gone.txt", models.FileTypeFiles)
	require.NoError(t, err)
	path := svc.AbsPath(file)

	require.NoError(t, svc.Delete(file.ID))

	_, err = svc.Get(file.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))

	assert.ErrorIs(t, svc.Delete(file.ID), ErrNotFound)
}

func TestListFilesByAttachmentState(t *testing.T) {
	db := newTestDB(t)
	svc := NewFileService(db, t.TempDir())
	posts := NewPostService(db)
	owner := seedUser(t, db, "owner@example.edu", models.PermissionEditor)
	seedCategory(t, db, "news")

	attached, err := svc.RegisterUpload(strings.NewReader("a"), "attached.pdf", models.FileTypeAttachments)
	require.NoError(t, err)
	loose, err := svc.RegisterUpload(strings.NewReader("b"), "loose.pdf", models.FileTypeAttachments)
	require.NoError(t, err)

	_, err = posts.Create(CreatePostInput{
		Title: "Holder", Content: "x", OwnerID: owner.ID,
		CategoryName: "news", Status: models.PostStatusDraft,
		FileIDs: []uint{attached.ID},
	})
	require.NoError(t, err)

	yes := true
	page, err := svc.List(FileFilter{Attached: &yes}, 10, 0)
	require.NoError(t, err)
	require.EqualValues(t, 1, page.Total)
	assert.Equal(t, attached.ID, page.Rows[0].ID)

	no := false
	page, err = svc.List(FileFilter{Attached: &no}, 10, 0)
	require.NoError(t, err)
	require.EqualValues(t, 1, page.Total)
	assert.Equal(t, loose.ID, page.Rows[0].ID)

	page, err = svc.List(FileFilter{FileType: models.FileTypeImages}, 10, 0)
	require.NoError(t, err)
	assert.Zero(t, page.Total)
}

func TestFileOwner(t *testing.T) {
	db := newTestDB(t)
	svc := NewFileService(db, t.TempDir())
	posts := NewPostService(db)
	owner := seedUser(t, db, "owner@example.edu", models.PermissionEditor)
	seedCategory(t, db, "news")

	file, err := svc.RegisterUpload(strings.NewReader("x"), "mine.pdf", models.FileTypeFiles)
	require.NoError(t, err)

	_, unattached, err := svc.Owner(file)
	require.NoError(t, err)
	assert.False(t, unattached)

	_, err = posts.Create(CreatePostInput{
		Title: "Holder", Content: "x", OwnerID: owner.ID,
		CategoryName: "news", Status: models.PostStatusDraft,
		FileIDs: []uint{file.ID},
	})
	require.NoError(t, err)

	reloaded, err := svc.Get(file.ID)
	require.NoError(t, err)
	ownerID, ok, err := svc.Owner(reloaded)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, owner.ID, ownerID)
}
