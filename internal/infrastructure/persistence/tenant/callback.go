package tenant

import (
	"context"
	"reflect"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/schema"
)

// DefaultColumn is the tenant column name on every scoped table
const DefaultColumn = "tenant_id"

// Callback holds the GORM hooks that enforce tenant isolation
type Callback struct {
	column string
	tables map[string]struct{}
}

// NewCallback creates isolation hooks for the given tables
func NewCallback(column string, tables ...string) *Callback {
	if column == "" {
		column = DefaultColumn
	}
	set := make(map[string]struct{}, len(tables))
	for _, t := range tables {
		set[t] = struct{}{}
	}
	return &Callback{column: column, tables: set}
}

// Register installs the hooks on db
func (tc *Callback) Register(db *gorm.DB) error {
	cb := db.Callback()
	if err := cb.Create().Before("gorm:create").Register("tenant:before_create", tc.beforeCreate); err != nil {
		return err
	}
	if err := cb.Query().Before("gorm:query").Register("tenant:before_query", tc.addFilter); err != nil {
		return err
	}
	if err := cb.Update().Before("gorm:update").Register("tenant:before_update", tc.addFilter); err != nil {
		return err
	}
	if err := cb.Delete().Before("gorm:delete").Register("tenant:before_delete", tc.addFilter); err != nil {
		return err
	}
	return cb.Row().Before("gorm:row").Register("tenant:before_row", tc.addFilter)
}

// EnableIsolation registers tenant hooks for tables on db
func EnableIsolation(db *gorm.DB, tables ...string) error {
	return NewCallback(DefaultColumn, tables...).Register(db)
}

func (tc *Callback) scoped(db *gorm.DB) bool {
	table := db.Statement.Table
	if table == "" && db.Statement.Schema != nil {
		table = db.Statement.Schema.Table
	}
	_, ok := tc.tables[table]
	return ok
}

// resolve returns the tenant to scope to. ok is false in system scope.
func (tc *Callback) resolve(db *gorm.DB) (tenantID uuid.UUID, ok bool) {
	ctx := db.Statement.Context
	if ctx == nil {
		ctx = context.Background()
	}
	if IsSystemScope(ctx) {
		return uuid.Nil, false
	}
	id, err := FromContext(ctx)
	if err != nil {
		_ = db.AddError(err)
		return uuid.Nil, false
	}
	return id, true
}

func (tc *Callback) addFilter(db *gorm.DB) {
	if db.Error != nil || !tc.scoped(db) {
		return
	}
	tenantID, ok := tc.resolve(db)
	if !ok {
		return
	}
	db.Statement.AddClause(clause.Where{
		Exprs: []clause.Expression{
			clause.Eq{
				Column: clause.Column{Table: clause.CurrentTable, Name: tc.column},
				Value:  tenantID,
			},
		},
	})
}

func (tc *Callback) beforeCreate(db *gorm.DB) {
	if db.Error != nil || !tc.scoped(db) || db.Statement.Schema == nil {
		return
	}
	field := db.Statement.Schema.LookUpField(tc.column)
	if field == nil {
		return
	}

	tenantID, ok := tc.resolve(db)
	if !ok && db.Error != nil {
		return
	}

	rv := db.Statement.ReflectValue
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		for i := 0; i < rv.Len(); i++ {
			tc.stamp(db, field, reflect.Indirect(rv.Index(i)), tenantID, ok)
		}
	case reflect.Struct:
		tc.stamp(db, field, rv, tenantID, ok)
	}
}

// stamp fills an empty tenant column and rejects rows that name a different
// tenant. In system scope (scoped=false) rows must already carry a tenant id.
func (tc *Callback) stamp(db *gorm.DB, field *schema.Field, row reflect.Value, tenantID uuid.UUID, scoped bool) {
	ctx := db.Statement.Context
	current, zero := field.ValueOf(ctx, row)
	if zero {
		if !scoped {
			_ = db.AddError(ErrTenantIDRequired)
			return
		}
		if err := field.Set(ctx, row, tenantID); err != nil {
			_ = db.AddError(err)
		}
		return
	}
	if scoped {
		if id, ok := current.(uuid.UUID); ok && id != tenantID {
			_ = db.AddError(ErrTenantMismatch)
		}
	}
}
