package repository

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type note struct {
	ID    int64  `gorm:"primaryKey"`
	Owner string `gorm:"index"`
	Title string
	Rank  int
}

func setupStore(t *testing.T) Repository[note] {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_loc=auto", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	assert.NoError(t, err)

	sqlDB, err := db.DB()
	assert.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)

	assert.NoError(t, db.AutoMigrate(&note{}))
	return ProvideStore[note](db)
}

func TestStoreFindFiltersAndOrders(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	assert.NoError(t, store.Create(ctx, &note{ID: 1, Owner: "ana", Title: "primeiro", Rank: 2}))
	assert.NoError(t, store.Create(ctx, &note{ID: 2, Owner: "ana", Title: "segundo", Rank: 1}))
	assert.NoError(t, store.Create(ctx, &note{ID: 3, Owner: "bia", Title: "alheio", Rank: 3}))

	rows, err := store.Find(ctx, &note{Owner: "ana"}, WithOrder("rank ASC"))
	assert.NoError(t, err)
	assert.Len(t, rows, 2)
	assert.Equal(t, "segundo", rows[0].Title)

	limited, err := store.Find(ctx, &note{Owner: "ana"}, WithOrder("rank ASC"), WithLimit(1))
	assert.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestStoreFindOneMissingIsNil(t *testing.T) {
	store := setupStore(t)

	row, err := store.FindOne(context.Background(), &note{Owner: "ninguem"})
	assert.NoError(t, err)
	assert.Nil(t, row)
}

func TestStoreUpdateAndCount(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	assert.NoError(t, store.Create(ctx, &note{ID: 10, Owner: "ana", Title: "rascunho"}))
	assert.NoError(t, store.Update(ctx, "10", map[string]any{"title": "final"}))

	row, err := store.FindOne(ctx, &note{ID: 10})
	assert.NoError(t, err)
	if assert.NotNil(t, row) {
		assert.Equal(t, "final", row.Title)
	}

	count, err := store.Count(ctx, &note{Owner: "ana"})
	assert.NoError(t, err)
	assert.EqualValues(t, 1, count)

	assert.NoError(t, store.Delete(ctx, "10"))
	count, err = store.Count(ctx, &note{Owner: "ana"})
	assert.NoError(t, err)
	assert.EqualValues(t, 0, count)
}

func TestStoreWithTrxRollsBack(t *testing.T) {
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_loc=auto", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	assert.NoError(t, err)

	sqlDB, err := db.DB()
	assert.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)
	assert.NoError(t, db.AutoMigrate(&note{}))

	store := ProvideStore[note](db)
	ctx := context.Background()

	err = db.Transaction(func(tx *gorm.DB) error {
		if err := store.WithTrx(tx).Create(ctx, &note{ID: 20, Owner: "ana"}); err != nil {
			return err
		}
		return gorm.ErrInvalidTransaction
	})
	assert.Error(t, err)

	count, err := store.Count(ctx, &note{})
	assert.NoError(t, err)
	assert.EqualValues(t, 0, count)
}
