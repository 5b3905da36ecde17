package repo

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Base carries the connection, or transaction, a domain repository writes through.
type Base struct {
	db *gorm.DB
}

func NewBase(db *gorm.DB) Base {
	return Base{db: db}
}

// DB returns the connection bound to ctx. A nil ctx returns it unbound.
func (b Base) DB(ctx context.Context) *gorm.DB {
	if ctx == nil {
		return b.db
	}
	return b.db.WithContext(ctx)
}

// ForUpdate returns a query that row-locks the rows it selects until the
// surrounding transaction ends. SQLite has no row locks; its single writer
// already serializes transactions, so the clause is omitted there.
func (b Base) ForUpdate(ctx context.Context) *gorm.DB {
	conn := b.DB(ctx)
	if b.IsSQLite() {
		return conn
	}
	return conn.Clauses(clause.Locking{Strength: "UPDATE"})
}

// IsSQLite reports whether the bound connection uses the sqlite dialect.
func (b Base) IsSQLite() bool {
	return b.db != nil && b.db.Dialector != nil && b.db.Dialector.Name() == "sqlite"
}

// CreateIfAbsent inserts each row, leaving rows whose key already exists untouched.
func (b Base) CreateIfAbsent(ctx context.Context, rows ...any) error {
	conn := b.DB(ctx).Clauses(clause.OnConflict{DoNothing: true})
	for _, row := range rows {
		if err := conn.Create(row).Error; err != nil {
			return err
		}
	}
	return nil
}

// UpdateIf applies updates to the rows of model matching query and reports
// whether any matched. Callers use the condition as a compare-and-swap guard.
func (b Base) UpdateIf(ctx context.Context, model any, updates map[string]any, query string, args ...any) (bool, error) {
	res := b.DB(ctx).Model(model).Where(query, args...).Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// UpdateOne is UpdateIf for rows that must exist; no match yields gorm.ErrRecordNotFound.
func (b Base) UpdateOne(ctx context.Context, model any, updates map[string]any, query string, args ...any) error {
	matched, err := b.UpdateIf(ctx, model, updates, query, args...)
	if err != nil {
		return err
	}
	if !matched {
		return gorm.ErrRecordNotFound
	}
	return nil
}
