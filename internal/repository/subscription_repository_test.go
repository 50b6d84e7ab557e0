package repository

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/ai-stack-deploy/engine/internal/models"
	appErr "github.com/ai-stack-deploy/engine/pkg/errors"
	"github.com/ai-stack-deploy/engine/pkg/logger"
)

func TestMain(m *testing.M) {
	if _, err := logger.Init("error", "json"); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{
		Conn:                 sqlDB,
		PreferSimpleProtocol: true,
	}), &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Silent)})
	require.NoError(t, err)
	return db, mock
}

func subscriptionRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "user_id", "user_email", "stripe_subscription_id", "plan_type", "status", "created_at",
	})
}

func TestSubscriptionGetActiveByPlanPrefix(t *testing.T) {
	ctx := context.Background()

	t.Run("found", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewSubscriptionRepository(db)

		subID := uuid.New()
		mock.ExpectQuery(`SELECT \* FROM "subscriptions" WHERE user_id = \$1 AND plan_type LIKE \$2 AND status = \$3`).
			WithArgs("user-1", "ollama-webui%", models.SubscriptionActive, 1).
			WillReturnRows(subscriptionRows().AddRow(
				subID, "user-1", "u1@example.com", "sub_stripe", "ollama-webui-pro", "active", time.Now(),
			))

		var sub models.Subscription
		require.NoError(t, repo.GetActiveByPlanPrefix(ctx, "user-1", "ollama-webui", &sub))
		assert.Equal(t, subID, sub.ID)
		assert.Equal(t, "ollama-webui-pro", sub.PlanType)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("none active", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewSubscriptionRepository(db)

		mock.ExpectQuery(`SELECT \* FROM "subscriptions"`).
			WithArgs("user-1", "rag-app%", models.SubscriptionActive, 1).
			WillReturnRows(subscriptionRows())

		var sub models.Subscription
		err := repo.GetActiveByPlanPrefix(ctx, "user-1", "rag-app", &sub)
		require.Error(t, err)
		assert.True(t, appErr.IsCode(err, appErr.CodeNotFound))
	})
}

func TestSubscriptionUpdateStatus(t *testing.T) {
	ctx := context.Background()

	t.Run("updates scoped by user", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewSubscriptionRepository(db)

		subID := uuid.New()
		mock.ExpectBegin()
		mock.ExpectExec(`UPDATE "subscriptions" SET "status"=\$1 WHERE id = \$2 AND user_id = \$3`).
			WithArgs(models.SubscriptionCanceled, subID, "user-1").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		require.NoError(t, repo.UpdateStatus(ctx, subID, "user-1", models.SubscriptionCanceled))
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("no matching row is not found", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewSubscriptionRepository(db)

		subID := uuid.New()
		mock.ExpectBegin()
		mock.ExpectExec(`UPDATE "subscriptions"`).
			WithArgs(models.SubscriptionCanceled, subID, "someone-else").
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectCommit()

		err := repo.UpdateStatus(ctx, subID, "someone-else", models.SubscriptionCanceled)
		require.Error(t, err)
		assert.True(t, appErr.IsCode(err, appErr.CodeNotFound))
	})
}

func TestSubscriptionUpdateStatusByStripeID(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewSubscriptionRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE "subscriptions" SET "status"=\$1 WHERE stripe_subscription_id = \$2`).
		WithArgs("past_due", "sub_stripe").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.UpdateStatusByStripeID(context.Background(), "sub_stripe", "past_due"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSubscriptionCountActive(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewSubscriptionRepository(db)

	mock.ExpectQuery(`SELECT count\(\*\) FROM "subscriptions" WHERE user_id = \$1 AND status = \$2`).
		WithArgs("user-1", models.SubscriptionActive).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))

	n, err := repo.CountActive(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}
