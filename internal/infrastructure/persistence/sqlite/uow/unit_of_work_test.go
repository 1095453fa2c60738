package uow

import (
	"context"
	"path/filepath"
	"testing"

	gormsqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"

	"cultura/internal/infrastructure/persistence/sqlite/model"
	"cultura/internal/ports"
)

func setupDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(gormsqlite.Open(filepath.Join(t.TempDir(), "uow.sqlite")), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("get sql db: %v", err)
	}
	t.Cleanup(func() {
		_ = sqlDB.Close()
	})
	if err := db.AutoMigrate(model.All()...); err != nil {
		t.Fatalf("auto migrate: %v", err)
	}
	return db
}

func txDB(t *testing.T, ctx context.Context) *gorm.DB {
	t.Helper()
	tx, ok := ports.TxFromContext(ctx).(*gorm.DB)
	if !ok {
		t.Fatalf("context carries no transaction")
	}
	return tx
}

func TestSavepointReleaseKeepsChanges(t *testing.T) {
	db := setupDB(t)
	unit := NewUnitOfWork(db)

	txCtx, tx, err := unit.Begin(context.Background())
	if err != nil {
		t.Fatalf("Begin() error = %v", err)
	}
	conn := txDB(t, txCtx)

	if err := tx.Savepoint("record"); err != nil {
		t.Fatalf("Savepoint() error = %v", err)
	}
	if err := conn.Create(&model.City{Name: "Paris"}).Error; err != nil {
		t.Fatalf("create city: %v", err)
	}
	if err := tx.Release("record"); err != nil {
		t.Fatalf("Release() error = %v", err)
	}
	if err := conn.Exec("ROLLBACK TO SAVEPOINT record").Error; err == nil {
		t.Fatalf("savepoint still open after Release()")
	}
	if err := tx.Commit(); err != nil {
		t.Fatalf("Commit() error = %v", err)
	}

	var n int64
	if err := db.Model(&model.City{}).Count(&n).Error; err != nil {
		t.Fatalf("count cities: %v", err)
	}
	if n != 1 {
		t.Fatalf("cities = %d, want 1", n)
	}
}

func TestSavepointRollbackThenRelease(t *testing.T) {
	db := setupDB(t)
	unit := NewUnitOfWork(db)

	txCtx, tx, err := unit.Begin(context.Background())
	if err != nil {
		t.Fatalf("Begin() error = %v", err)
	}
	conn := txDB(t, txCtx)

	if err := tx.Savepoint("record"); err != nil {
		t.Fatalf("Savepoint() error = %v", err)
	}
	if err := conn.Create(&model.City{Name: "Lyon"}).Error; err != nil {
		t.Fatalf("create city: %v", err)
	}
	if err := tx.RollbackTo("record"); err != nil {
		t.Fatalf("RollbackTo() error = %v", err)
	}
	if err := tx.Release("record"); err != nil {
		t.Fatalf("Release() after RollbackTo error = %v", err)
	}
	if err := tx.Commit(); err != nil {
		t.Fatalf("Commit() error = %v", err)
	}

	var n int64
	if err := db.Model(&model.City{}).Count(&n).Error; err != nil {
		t.Fatalf("count cities: %v", err)
	}
	if n != 0 {
		t.Fatalf("cities = %d, want 0", n)
	}
}
