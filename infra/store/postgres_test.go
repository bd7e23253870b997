package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/crisistriage/core/errs"
	"github.com/kilianp07/crisistriage/core/model"
	corestore "github.com/kilianp07/crisistriage/core/store"
)

func setupMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock, *PostgresStore) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db, mock, NewPostgresStore(db)
}

func resourceRow(t *testing.T, r model.Resource, avail int64, status string, at time.Time) *sqlmock.Rows {
	doc, err := json.Marshal(r)
	require.NoError(t, err)
	return sqlmock.NewRows([]string{"doc", "availability", "status", "updated_at"}).
		AddRow(doc, avail, status, at)
}

func TestPostgresFindResources_OverlaysColumns(t *testing.T) {
	_, mock, s := setupMockDB(t)
	at := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`FROM resources WHERE status = \$1 AND verified = \$2 ORDER BY id`).
		WithArgs("active", true).
		WillReturnRows(resourceRow(t, ambulance("a", 4), 1, "active", at))

	res, err := s.FindResources(context.Background(), corestore.Eligible())
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.Equal(t, "a", res[0].ID)
	assert.Equal(t, 1, res[0].Availability)
	assert.Equal(t, at, res[0].UpdatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresGetResource_NotFound(t *testing.T) {
	_, mock, s := setupMockDB(t)
	mock.ExpectQuery(`FROM resources WHERE id = \$1`).
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"doc", "availability", "status", "updated_at"}))

	_, err := s.GetResource(context.Background(), "missing")
	assert.ErrorIs(t, err, errs.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresSaveResource_RejectsInvalid(t *testing.T) {
	_, mock, s := setupMockDB(t)
	bad := ambulance("a", 9)

	err := s.SaveResource(context.Background(), bad)
	assert.ErrorIs(t, err, errs.ErrValidation)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresSaveResource_Upserts(t *testing.T) {
	_, mock, s := setupMockDB(t)
	mock.ExpectExec(`INSERT INTO resources .* ON CONFLICT \(id\) DO UPDATE`).
		WithArgs("a", "ambulance", "active", true, 4, 2, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, s.SaveResource(context.Background(), ambulance("a", 2)))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresUpdateAvailability_Success(t *testing.T) {
	_, mock, s := setupMockDB(t)
	at := time.Now().UTC()
	mock.ExpectQuery(`UPDATE resources SET`).
		WithArgs("a", -1, sqlmock.AnyArg()).
		WillReturnRows(resourceRow(t, ambulance("a", 1), 0, "deployed", at))

	r, err := s.UpdateResourceAvailability(context.Background(), "a", -1)
	require.NoError(t, err)
	assert.Equal(t, 0, r.Availability)
	assert.Equal(t, model.ResourceDeployed, r.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresUpdateAvailability_Conflict(t *testing.T) {
	_, mock, s := setupMockDB(t)
	mock.ExpectQuery(`UPDATE resources SET`).
		WithArgs("a", -3, sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"doc", "availability", "status", "updated_at"}))
	mock.ExpectQuery(`SELECT EXISTS`).
		WithArgs("a").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	_, err := s.UpdateResourceAvailability(context.Background(), "a", -3)
	assert.ErrorIs(t, err, errs.ErrCapacityConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresUpdateAvailability_ReservationGuardsStatus(t *testing.T) {
	_, mock, s := setupMockDB(t)
	mock.ExpectQuery(`WHERE id = \$1 .* AND \(\$2 >= 0 OR \(status = 'active' AND verified\)\)`).
		WithArgs("off", -1, sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"doc", "availability", "status", "updated_at"}))
	mock.ExpectQuery(`SELECT EXISTS`).
		WithArgs("off").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	_, err := s.UpdateResourceAvailability(context.Background(), "off", -1)
	assert.ErrorIs(t, err, errs.ErrCapacityConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresUpdateAvailability_Missing(t *testing.T) {
	_, mock, s := setupMockDB(t)
	mock.ExpectQuery(`UPDATE resources SET`).
		WillReturnRows(sqlmock.NewRows([]string{"doc", "availability", "status", "updated_at"}))
	mock.ExpectQuery(`SELECT EXISTS`).
		WithArgs("x").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

	_, err := s.UpdateResourceAvailability(context.Background(), "x", 1)
	assert.ErrorIs(t, err, errs.ErrNotFound)
}

func TestPostgresUpdateResource_Patch(t *testing.T) {
	_, mock, s := setupMockDB(t)
	status := model.ResourceInactive

	mock.ExpectBegin()
	mock.ExpectQuery(`FROM resources WHERE id = \$1 FOR UPDATE`).
		WithArgs("a").
		WillReturnRows(resourceRow(t, ambulance("a", 2), 2, "active", time.Now().UTC()))
	mock.ExpectExec(`INSERT INTO resources`).
		WithArgs("a", "ambulance", "inactive", true, 4, 2, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	r, err := s.UpdateResource(context.Background(), "a", model.ResourcePatch{Status: &status})
	require.NoError(t, err)
	assert.Equal(t, model.ResourceInactive, r.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresUpdateRequest_CAS(t *testing.T) {
	_, mock, s := setupMockDB(t)
	req := model.EmergencyRequest{ID: "r1", Status: model.StatusDispatched}

	mock.ExpectExec(`UPDATE requests SET status = \$2, doc = \$3 WHERE id = \$1 AND status = \$4`).
		WithArgs("r1", "dispatched", sqlmock.AnyArg(), "matched").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT status FROM requests`).
		WithArgs("r1").
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("dispatched"))

	err := s.UpdateRequest(context.Background(), req, model.StatusMatched)
	assert.ErrorIs(t, err, errs.ErrInvalidTransition)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresUpdateRequest_Applied(t *testing.T) {
	_, mock, s := setupMockDB(t)
	req := model.EmergencyRequest{ID: "r1", Status: model.StatusDispatched}
	mock.ExpectExec(`UPDATE requests`).
		WithArgs("r1", "dispatched", sqlmock.AnyArg(), "matched").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, s.UpdateRequest(context.Background(), req, model.StatusMatched))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresListRequests_Paging(t *testing.T) {
	_, mock, s := setupMockDB(t)
	doc, err := json.Marshal(model.EmergencyRequest{ID: "r2", Status: model.StatusPending})
	require.NoError(t, err)

	mock.ExpectQuery(`FROM requests WHERE status = \$1 ORDER BY received_at DESC, id ASC LIMIT \$2 OFFSET \$3`).
		WithArgs("pending", 10, 5).
		WillReturnRows(sqlmock.NewRows([]string{"doc"}).AddRow(doc))

	res, err := s.ListRequests(context.Background(), corestore.RequestFilter{Status: model.StatusPending, Skip: 5, Limit: 10})
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.Equal(t, "r2", res[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresFindRequest_NotFound(t *testing.T) {
	_, mock, s := setupMockDB(t)
	mock.ExpectQuery(`SELECT doc FROM requests WHERE id = \$1`).
		WithArgs("nope").
		WillReturnError(sql.ErrNoRows)

	_, err := s.FindRequest(context.Background(), "nope")
	assert.ErrorIs(t, err, errs.ErrNotFound)
}
