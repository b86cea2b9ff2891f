package coupon

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/mercadia/storefront-backend/pkg/db/models"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&models.Coupon{}))
	return conn
}

func TestIncrementUsageRespectsCap(t *testing.T) {
	conn := openTestDB(t)
	repo := NewRepository(conn)
	ctx := context.Background()

	maxUses := 2
	created, err := repo.Create(ctx, &models.Coupon{
		Code:     "save10",
		Percent:  10,
		IsActive: true,
		MaxUses:  &maxUses,
	})
	require.NoError(t, err)
	require.Equal(t, "SAVE10", created.Code)

	for i := 0; i < 2; i++ {
		ok, err := repo.IncrementUsage(ctx, created.ID)
		require.NoError(t, err)
		require.True(t, ok, "use %d should succeed", i+1)
	}

	// Cap reached: further increments must report failure without moving the counter.
	ok, err := repo.IncrementUsage(ctx, created.ID)
	require.NoError(t, err)
	require.False(t, ok)

	reloaded, err := repo.FindByID(ctx, created.ID)
	require.NoError(t, err)
	require.Equal(t, 2, reloaded.UsedCount)
}

func TestIncrementUsageConcurrentLastUse(t *testing.T) {
	conn := openTestDB(t)
	sqlDB, err := conn.DB()
	require.NoError(t, err)
	// One connection keeps sqlite from throwing lock errors; the goroutines
	// still race on the guarded UPDATE itself.
	sqlDB.SetMaxOpenConns(1)

	repo := NewRepository(conn)
	ctx := context.Background()

	maxUses := 1
	created, err := repo.Create(ctx, &models.Coupon{
		Code:     "LASTONE",
		Percent:  10,
		IsActive: true,
		MaxUses:  &maxUses,
	})
	require.NoError(t, err)

	const racers = 8
	var wins int32
	errs := make(chan error, racers)
	var wg sync.WaitGroup
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := repo.IncrementUsage(ctx, created.ID)
			if err != nil {
				errs <- err
				return
			}
			if ok {
				atomic.AddInt32(&wins, 1)
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	require.EqualValues(t, 1, wins, "exactly one racer may take the last use")

	reloaded, err := repo.FindByID(ctx, created.ID)
	require.NoError(t, err)
	require.Equal(t, 1, reloaded.UsedCount)
}

func TestIncrementUsageUncapped(t *testing.T) {
	conn := openTestDB(t)
	repo := NewRepository(conn)
	ctx := context.Background()

	created, err := repo.Create(ctx, &models.Coupon{
		Code:     "FOREVER",
		Percent:  5,
		IsActive: true,
	})
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		ok, err := repo.IncrementUsage(ctx, created.ID)
		require.NoError(t, err)
		require.True(t, ok)
	}

	reloaded, err := repo.FindByID(ctx, created.ID)
	require.NoError(t, err)
	require.Equal(t, 5, reloaded.UsedCount)
}

func TestFindByCodeIsCaseInsensitive(t *testing.T) {
	conn := openTestDB(t)
	repo := NewRepository(conn)
	ctx := context.Background()

	_, err := repo.Create(ctx, &models.Coupon{Code: "Spring20", Percent: 20, IsActive: true})
	require.NoError(t, err)

	found, err := repo.FindByCode(ctx, "  spring20 ")
	require.NoError(t, err)
	require.Equal(t, "SPRING20", found.Code)
}
