package repository

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/thetankguide/featuretank/internal/models"
	"github.com/thetankguide/featuretank/pkg/database"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:memdb_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: gormlogger.Discard})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, database.Migrate(db))
	return db
}

func newSubmission(email, tank string, price, credits int) *models.Submission {
	status, payment := models.StatusSubmitted, models.PaymentFree
	if price > 0 {
		status, payment = models.StatusPaymentPending, models.PaymentPending
	}
	return &models.Submission{
		UserName:              "Riley",
		UserEmail:             email,
		TankName:              tank,
		TankSize:              29,
		Environment:           models.EnvironmentPlanted,
		NarrativeSource:       models.NarrativeStaff,
		IsFirstTank:           true,
		TotalPrice:            price,
		TotalCreditsPurchased: credits,
		PaymentStatus:         payment,
		Status:                status,
	}
}

func createSubmission(t *testing.T, repo *SubmissionRepository, sub *models.Submission) *models.Submission {
	t.Helper()
	require.NoError(t, repo.Create(context.Background(), sub))
	return sub
}

func newRepo(t *testing.T) (*SubmissionRepository, *gorm.DB) {
	db := newTestDB(t)
	return NewSubmissionRepository(db, zap.NewNop()), db
}
