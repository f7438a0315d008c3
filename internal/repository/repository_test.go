package repository

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/modelfactory/portal/internal/domain"
)

// testDB opens a private in-memory database per test
func testDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, domain.AutoMigrate(db))
	return db
}

func createTestUser(t *testing.T, db *gorm.DB, email string) *domain.User {
	t.Helper()

	user := &domain.User{Name: "Test User", Email: email}
	require.NoError(t, user.SetPassword("password123"))
	require.NoError(t, NewUserRepository(db).Create(context.Background(), user))
	return user
}

func createTestModel(t *testing.T, db *gorm.DB, userID uuid.UUID) *domain.Model {
	t.Helper()

	ctx := context.Background()
	factory := &domain.Factory{Name: "plant", UserID: userID}
	require.NoError(t, NewFactoryRepository(db).Create(ctx, factory))

	algorithm := &domain.Algorithm{Name: "algo", FactoryID: factory.ID, UserID: userID}
	require.NoError(t, NewAlgorithmRepository(db).Create(ctx, algorithm))

	model := &domain.Model{Name: "model", AlgorithmID: algorithm.ID, UserID: userID}
	require.NoError(t, NewModelRepository(db).Create(ctx, model))
	return model
}
