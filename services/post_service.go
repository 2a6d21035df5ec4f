package services

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/shdlab/department-api/models"
	"github.com/shdlab/department-api/utils"
)

var (
	// ErrNotFound signals that a referenced record does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrCreateFailed signals that the base post insert was rejected.
	ErrCreateFailed = errors.New("failed to create post")
	// ErrInvalidCategory signals a post write referencing a category name
	// that does not exist.
	ErrInvalidCategory = errors.New("unknown category")
)

// Sortable columns for post listings. Anything else silently falls back to
// the default so a sort parameter can never inject SQL.
var postOrderColumns = map[string]bool{
	"announcement_date": true,
	"click_count":       true,
}

const defaultPostOrder = "announcement_date"

// PostService maintains a post together with its hashtag and file
// associations as one consistency unit. Every mutating operation runs in a
// single transaction; a failure anywhere rolls back the whole write.
type PostService struct {
	db *gorm.DB
}

// NewPostService creates a PostService on top of the pooled gorm handle.
func NewPostService(db *gorm.DB) *PostService {
	return &PostService{db: db}
}

// CreatePostInput carries everything a post is created from. FileIDs refer
// to previously registered uploads sitting in the holding area.
type CreatePostInput struct {
	Title        string
	Content      string
	OwnerID      uint
	CategoryName string
	Status       string
	Hashtags     []string
	FileIDs      []uint
}

// PostPatch is a partial update: nil fields are left unmodified. A non-nil
// Hashtags or FileIDs slice, even an empty one, fully replaces the existing
// association set.
type PostPatch struct {
	Title        *string
	Content      *string
	CategoryName *string
	Status       *string
	Hashtags     *[]string
	FileIDs      *[]uint
}

// PostDetail is the assembled read shape: the post row, its hashtag names,
// and its files split into the images/attachments groupings.
type PostDetail struct {
	models.Post
	HashtagNames []string      `json:"hashtags"`
	Images       []models.File `json:"images"`
	Attachments  []models.File `json:"attachments"`
}

// PostFilter narrows a listing. Zero values impose no constraint; all
// present filters AND together.
type PostFilter struct {
	TitleLike  string
	Categories []string
	OwnerID    uint
	Status     string
}

// PostSummary is one listing row with its associations joined in memory.
type PostSummary struct {
	models.Post
	HashtagNames []string      `json:"hashtags"`
	AttachedFile []models.File `json:"files"`
}

// PostPage is a listing page; Total reflects the filtered count independent
// of the page window.
type PostPage struct {
	Total int64         `json:"total"`
	Rows  []PostSummary `json:"rows"`
}

// Create inserts the post and wires its file and hashtag associations in one
// transaction. Returns the new post id.
func (s *PostService) Create(input CreatePostInput) (uint, error) {
	var postID uint
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := categoryExists(tx, input.CategoryName); err != nil {
			return err
		}
		post := models.Post{
			Title:            input.Title,
			Content:          input.Content,
			UserID:           input.OwnerID,
			CategoryName:     input.CategoryName,
			Status:           input.Status,
			AnnouncementDate: time.Now(),
		}
		if err := tx.Create(&post).Error; err != nil {
			return fmt.Errorf("%w: %v", ErrCreateFailed, err)
		}
		if err := attachFiles(tx, post.ID, input.FileIDs); err != nil {
			return err
		}
		if err := replaceHashtags(tx, post.ID, input.Hashtags); err != nil {
			return err
		}
		postID = post.ID
		return nil
	})
	if err != nil {
		return 0, err
	}
	return postID, nil
}

// Update applies a partial patch. File and hashtag lists, when present, are
// full-replace: the association set after the call exactly equals the
// supplied set. The announcement date is refreshed whenever a basic field
// changes so listings sort by last modification.
func (s *PostService) Update(postID uint, patch PostPatch) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		var post models.Post
		if err := tx.First(&post, postID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}

		if patch.CategoryName != nil {
			if err := categoryExists(tx, *patch.CategoryName); err != nil {
				return err
			}
		}

		updates := map[string]interface{}{}
		if patch.Title != nil {
			updates["title"] = *patch.Title
		}
		if patch.Content != nil {
			updates["content"] = *patch.Content
		}
		if patch.CategoryName != nil {
			updates["category_name"] = *patch.CategoryName
		}
		if patch.Status != nil {
			updates["status"] = *patch.Status
		}
		if len(updates) > 0 {
			updates["announcement_date"] = time.Now()
			if err := tx.Model(&post).Updates(updates).Error; err != nil {
				return err
			}
		}

		if patch.FileIDs != nil {
			// Detach everything first, then attach the new list: replace, never merge.
			if err := tx.Model(&models.File{}).Where("post_id = ?", post.ID).
				Update("post_id", nil).Error; err != nil {
				return err
			}
			if err := attachFiles(tx, post.ID, *patch.FileIDs); err != nil {
				return err
			}
		}

		if patch.Hashtags != nil {
			if err := replaceHashtags(tx, post.ID, *patch.Hashtags); err != nil {
				return err
			}
		}
		return nil
	})
}

// Get returns the post with its associations. Each call increments the view
// counter by exactly one; the read is intentionally not idempotent.
func (s *PostService) Get(postID uint) (*PostDetail, error) {
	// UpdateColumn keeps updated_at untouched: a view is not an edit.
	res := s.db.Model(&models.Post{}).Where("id = ?", postID).
		UpdateColumn("click_count", gorm.Expr("click_count + ?", 1))
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, ErrNotFound
	}

	var post models.Post
	if err := s.db.First(&post, postID).Error; err != nil {
		return nil, err
	}

	var files []models.File
	if err := s.db.Where("post_id = ?", postID).Find(&files).Error; err != nil {
		return nil, err
	}

	var tags []models.Hashtag
	if err := s.db.Model(&post).Association("Hashtags").Find(&tags); err != nil {
		return nil, err
	}

	detail := &PostDetail{
		Post:         post,
		HashtagNames: make([]string, 0, len(tags)),
		Images:       []models.File{},
		Attachments:  []models.File{},
	}
	for _, t := range tags {
		detail.HashtagNames = append(detail.HashtagNames, t.TagName)
	}
	for _, f := range files {
		if f.FileType == models.FileTypeImages {
			detail.Images = append(detail.Images, f)
		} else {
			detail.Attachments = append(detail.Attachments, f)
		}
	}
	return detail, nil
}

// List returns one page of posts matching the filter. Associations for the
// whole page are fetched with one query per association type and joined in
// memory, never per row.
func (s *PostService) List(filter PostFilter, orderBy string, pageSize, offset int) (*PostPage, error) {
	if pageSize <= 0 {
		pageSize = 10
	}
	if offset < 0 {
		offset = 0
	}
	if !postOrderColumns[orderBy] {
		orderBy = defaultPostOrder
	}

	query := s.db.Model(&models.Post{})
	if filter.TitleLike != "" {
		query = query.Where("LOWER(title) LIKE LOWER(?)", "%"+filter.TitleLike+"%")
	}
	if len(filter.Categories) > 0 {
		query = query.Where("category_name IN ?", filter.Categories)
	}
	if filter.OwnerID != 0 {
		query = query.Where("user_id = ?", filter.OwnerID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}

	page := &PostPage{Rows: []PostSummary{}}
	if err := query.Count(&page.Total).Error; err != nil {
		return nil, err
	}

	var posts []models.Post
	if err := query.Order(orderBy + " DESC").Offset(offset).Limit(pageSize).
		Find(&posts).Error; err != nil {
		return nil, err
	}
	if len(posts) == 0 {
		return page, nil
	}

	ids := make([]uint, 0, len(posts))
	for _, p := range posts {
		ids = append(ids, p.ID)
	}

	var files []models.File
	if err := s.db.Where("post_id IN ?", ids).Find(&files).Error; err != nil {
		return nil, err
	}
	filesByPost := map[uint][]models.File{}
	for _, f := range files {
		if f.PostID != nil {
			filesByPost[*f.PostID] = append(filesByPost[*f.PostID], f)
		}
	}

	type tagRow struct {
		PostID  uint   `gorm:"column:post_id"`
		TagName string `gorm:"column:tag_name"`
	}
	var tagRows []tagRow
	if err := s.db.Table("post_hashtags").
		Select("post_hashtags.post_id, hashtags.tag_name").
		Joins("JOIN hashtags ON hashtags.id = post_hashtags.hashtag_id").
		Where("post_hashtags.post_id IN ?", ids).
		Scan(&tagRows).Error; err != nil {
		return nil, err
	}
	tagsByPost := map[uint][]string{}
	for _, r := range tagRows {
		tagsByPost[r.PostID] = append(tagsByPost[r.PostID], r.TagName)
	}

	for _, p := range posts {
		row := PostSummary{
			Post:         p,
			HashtagNames: tagsByPost[p.ID],
			AttachedFile: filesByPost[p.ID],
		}
		if row.HashtagNames == nil {
			row.HashtagNames = []string{}
		}
		if row.AttachedFile == nil {
			row.AttachedFile = []models.File{}
		}
		page.Rows = append(page.Rows, row)
	}
	return page, nil
}

// Delete removes the post. Associated files are detached, not deleted: the
// rows and stored bytes survive since uploads may be shared.
func (s *PostService) Delete(postID uint) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		var post models.Post
		if err := tx.First(&post, postID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		if err := tx.Model(&models.File{}).Where("post_id = ?", post.ID).
			Update("post_id", nil).Error; err != nil {
			return err
		}
		if err := tx.Model(&post).Association("Hashtags").Clear(); err != nil {
			return err
		}
		return tx.Delete(&post).Error
	})
}

// Owner resolves the post's owner id for the handler-local ownership gate.
func (s *PostService) Owner(postID uint) (uint, error) {
	var post models.Post
	if err := s.db.Select("id", "user_id").First(&post, postID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, ErrNotFound
		}
		return 0, err
	}
	return post.UserID, nil
}

func categoryExists(tx *gorm.DB, name string) error {
	var cat models.Category
	if err := tx.Where("name = ?", name).First(&cat).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrInvalidCategory
		}
		return err
	}
	return nil
}

// attachFiles points the given holding-area files at the post. Ids that do
// not exist or are already attached elsewhere match zero rows: a silent
// no-op so retries stay idempotent, surfaced only as a warning.
func attachFiles(tx *gorm.DB, postID uint, fileIDs []uint) error {
	if len(fileIDs) == 0 {
		return nil
	}
	res := tx.Model(&models.File{}).
		Where("id IN ? AND post_id IS NULL", fileIDs).
		Update("post_id", postID)
	if res.Error != nil {
		return res.Error
	}
	if int(res.RowsAffected) < len(fileIDs) && utils.Sugar != nil {
		utils.Sugar.Warnf("post %d: %d of %d file ids could not be attached",
			postID, len(fileIDs)-int(res.RowsAffected), len(fileIDs))
	}
	return nil
}

// replaceHashtags makes the post's tag set exactly equal names: tags are
// upserted (never duplicated, never deleted globally) and the join rows are
// replaced wholesale.
func replaceHashtags(tx *gorm.DB, postID uint, names []string) error {
	seen := map[string]bool{}
	cleaned := make([]string, 0, len(names))
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n == "" || seen[n] {
			continue
		}
		seen[n] = true
		cleaned = append(cleaned, n)
	}

	post := models.Post{ID: postID}
	if len(cleaned) == 0 {
		return tx.Model(&post).Association("Hashtags").Clear()
	}

	tags := make([]models.Hashtag, 0, len(cleaned))
	for _, n := range cleaned {
		tags = append(tags, models.Hashtag{TagName: n})
	}
	// Idempotent upsert: an existing tag_name leaves the row untouched.
	if err := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "tag_name"}},
		DoNothing: true,
	}).Create(&tags).Error; err != nil {
		return err
	}

	// Re-read so rows that already existed carry their real ids.
	var linked []models.Hashtag
	if err := tx.Where("tag_name IN ?", cleaned).Find(&linked).Error; err != nil {
		return err
	}
	return tx.Model(&post).Association("Hashtags").Replace(&linked)
}
