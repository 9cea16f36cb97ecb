package repository

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/garyjia/approval-router/internal/domain/entity"
	"github.com/garyjia/approval-router/internal/infrastructure/persistence/sqlite"
	"github.com/garyjia/approval-router/pkg/database"
)

func setupTestDB(t *testing.T) (*sql.DB, *sqlite.DB) {
	t.Helper()

	logger := zap.NewNop()
	db, err := database.New(database.Config{
		Path:         filepath.Join(t.TempDir(), "approvals.db"),
		MaxOpenConns: 8,
		MaxIdleConns: 8,
	}, logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	_, err = database.NewMigrator(db, logger).RunMigrations(context.Background(), database.EmbeddedMigrations())
	require.NoError(t, err)

	return db.DB, sqlite.NewDB(db.DB, logger)
}

// newRequest builds a request whose listed stages are pending and the rest not applicable
func newRequest(requester string, t entity.RequestType, created time.Time, pending ...entity.Stage) *entity.Request {
	stages := make(entity.Stages, 5)
	for _, s := range entity.CanonicalStages() {
		stages[s] = entity.StageStatus{Stage: s, State: entity.StageNotApplicable}
	}
	for _, s := range pending {
		stages[s] = entity.StageStatus{Stage: s, State: entity.StagePending}
	}
	return &entity.Request{
		RequesterID:         requester,
		Type:                t,
		RequesterRole:       entity.RoleEmployee,
		RequesterDepartment: "Operations",
		Stages:              stages,
		CreatedAt:           created,
		UpdatedAt:           created,
	}
}
