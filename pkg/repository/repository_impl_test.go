package repository

import (
	"context"
	"fmt"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

type widget struct {
	ID    int64 `gorm:"column:id;primaryKey;autoIncrement:false"`
	Kind  int   `gorm:"column:kind"`
	Label string
}

func newTestStore(t *testing.T) Repository[widget] {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&widget{}))
	return ProvideStore[widget](db)
}

func TestBatchCreateIgnoreConflicts(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Create(ctx, &widget{ID: 2, Kind: 1}))

	// Batch overlaps the existing row; only the new rows land.
	err := store.BatchCreateIgnoreConflicts(ctx, []*widget{
		{ID: 1, Kind: 1},
		{ID: 2, Kind: 9},
		{ID: 3, Kind: 2},
	}, 2)
	require.NoError(t, err)

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)

	kept, err := store.FindOne(ctx, Where("id = ?", 2))
	require.NoError(t, err)
	require.NotNil(t, kept)
	assert.Equal(t, 1, kept.Kind)
}

func TestExists(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	populated, err := store.Exists(ctx)
	require.NoError(t, err)
	assert.False(t, populated)

	require.NoError(t, store.Create(ctx, &widget{ID: 1, Kind: 1}))

	populated, err = store.Exists(ctx)
	require.NoError(t, err)
	assert.True(t, populated)
}

func TestMaxInt64(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	max, err := store.MaxInt64(ctx, "id")
	require.NoError(t, err)
	assert.Equal(t, int64(0), max)

	require.NoError(t, store.BatchCreateIgnoreConflicts(ctx, []*widget{
		{ID: 5, Kind: 1},
		{ID: 9, Kind: 2},
		{ID: 7, Kind: 1},
	}, 10))

	max, err = store.MaxInt64(ctx, "id")
	require.NoError(t, err)
	assert.Equal(t, int64(9), max)

	max, err = store.MaxInt64(ctx, "id", Where("kind = ?", 1))
	require.NoError(t, err)
	assert.Equal(t, int64(7), max)
}

func TestFindWithOrder(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.BatchCreateIgnoreConflicts(ctx, []*widget{
		{ID: 3}, {ID: 1}, {ID: 2},
	}, 10))

	rows, err := store.Find(ctx, OrderBy("id"))
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, int64(1), rows[0].ID)
	assert.Equal(t, int64(3), rows[2].ID)
}

func TestFindOneMissingRowIsNil(t *testing.T) {
	store := newTestStore(t)

	row, err := store.FindOne(context.Background(), Where("id = ?", 404))
	require.NoError(t, err)
	assert.Nil(t, row)
}
