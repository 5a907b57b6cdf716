package tenant

import (
	"context"
	"database/sql"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

type testOrder struct {
	ID       uuid.UUID `gorm:"type:uuid;primaryKey"`
	TenantID uuid.UUID `gorm:"type:uuid;not null"`
	Name     string
}

func (o testOrder) OwnerTenantID() uuid.UUID { return o.TenantID }

type testLookup struct {
	ID   uuid.UUID `gorm:"type:uuid;primaryKey"`
	Code string
}

func setupCallbackMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock, *sql.DB) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		Conn:       mockDB,
		DriverName: "postgres",
	}), &gorm.Config{SkipDefaultTransaction: true})
	require.NoError(t, err)

	require.NoError(t, EnableIsolation(gormDB, "test_orders"))
	return gormDB, mock, mockDB
}

func TestCallback_QueryAddsTenantFilter(t *testing.T) {
	db, mock, mockDB := setupCallbackMockDB(t)
	defer mockDB.Close()

	tenantID := uuid.New()
	mock.ExpectQuery(`SELECT \* FROM "test_orders" WHERE "test_orders"."tenant_id" = \$1`).
		WithArgs(tenantID).
		WillReturnRows(sqlmock.NewRows([]string{"id", "tenant_id", "name"}))

	var rows []testOrder
	err := db.WithContext(ContextFor(context.Background(), tenantID)).Find(&rows).Error

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCallback_UpdateAndDeleteAreScoped(t *testing.T) {
	db, mock, mockDB := setupCallbackMockDB(t)
	defer mockDB.Close()

	tenantID := uuid.New()
	rowID := uuid.New()
	ctx := ContextFor(context.Background(), tenantID)

	mock.ExpectExec(`UPDATE "test_orders" SET "name"=\$1 WHERE id = \$2 AND "test_orders"."tenant_id" = \$3`).
		WithArgs("renamed", rowID, tenantID).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`DELETE FROM "test_orders" WHERE id = \$1 AND "test_orders"."tenant_id" = \$2`).
		WithArgs(rowID, tenantID).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, db.WithContext(ctx).Model(&testOrder{}).Where("id = ?", rowID).Update("name", "renamed").Error)
	require.NoError(t, db.WithContext(ctx).Where("id = ?", rowID).Delete(&testOrder{}).Error)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCallback_FailsClosedWithoutTenant(t *testing.T) {
	db, mock, mockDB := setupCallbackMockDB(t)
	defer mockDB.Close()

	var rows []testOrder
	err := db.WithContext(context.Background()).Find(&rows).Error
	assert.ErrorIs(t, err, ErrTenantIDRequired)

	err = db.WithContext(context.Background()).Model(&testOrder{}).Where("id = ?", uuid.New()).Update("name", "x").Error
	assert.ErrorIs(t, err, ErrTenantIDRequired)

	// nothing reached the database
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCallback_InvalidTenantID(t *testing.T) {
	db, _, mockDB := setupCallbackMockDB(t)
	defer mockDB.Close()

	ctx, _ := withRawTenant(context.Background(), "not-a-uuid")

	var rows []testOrder
	err := db.WithContext(ctx).Find(&rows).Error
	assert.ErrorIs(t, err, ErrInvalidTenantID)
}

func TestCallback_SystemScopeSkipsFilter(t *testing.T) {
	db, mock, mockDB := setupCallbackMockDB(t)
	defer mockDB.Close()

	mock.ExpectQuery(`SELECT \* FROM "test_orders"$`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "tenant_id", "name"}))

	var rows []testOrder
	err := db.WithContext(WithSystemScope(context.Background())).Find(&rows).Error

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCallback_UnregisteredTableUntouched(t *testing.T) {
	db, mock, mockDB := setupCallbackMockDB(t)
	defer mockDB.Close()

	mock.ExpectQuery(`SELECT \* FROM "test_lookups"$`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "code"}))

	var rows []testLookup
	require.NoError(t, db.WithContext(context.Background()).Find(&rows).Error)
	assert.NoError(t, mock.ExpectationsWereMet())
}
