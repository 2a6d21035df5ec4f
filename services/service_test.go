package services

import (
	"os"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/shdlab/department-api/models"
)

func TestMain(m *testing.M) {
	os.Setenv("JWT_SECRET", "test-secret")
	os.Exit(m.Run())
}

// newTestDB opens an isolated in-memory database with the full schema.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	// In-memory sqlite lives per connection; keep a single one.
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.RefreshToken{},
		&models.Category{},
		&models.Post{},
		&models.Hashtag{},
		&models.File{},
		&models.BulletinMessage{},
	))
	return db
}

func seedUser(t *testing.T, db *gorm.DB, account, permission string) *models.User {
	t.Helper()
	user := models.User{
		Name:         "Test User",
		Account:      account,
		PasswordHash: "x",
		Permission:   permission,
	}
	require.NoError(t, db.Create(&user).Error)
	return &user
}

func seedCategory(t *testing.T, db *gorm.DB, name string) *models.Category {
	t.Helper()
	cat := models.Category{Name: name, CategoryType: models.CategoryTypeLatestNews}
	require.NoError(t, db.Create(&cat).Error)
	return &cat
}

func seedFile(t *testing.T, db *gorm.DB, name string) *models.File {
	t.Helper()
	file := models.File{
		FilePath:         "files/" + name,
		OriginalFilename: name,
		FileType:         models.FileTypeFiles,
	}
	require.NoError(t, db.Create(&file).Error)
	return &file
}
