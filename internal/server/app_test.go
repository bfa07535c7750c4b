package server

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/cartkeeper/internal/dbx"
	"github.com/dmitrijs2005/cartkeeper/internal/server/config"
	"github.com/dmitrijs2005/cartkeeper/internal/server/repositories/carts"
	"github.com/dmitrijs2005/cartkeeper/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/cartkeeper/internal/server/repositories/users"
)

type fakeManager struct {
	migrateErr error
	migrated   bool
}

func (m *fakeManager) RunMigrations(context.Context, *sql.DB) error {
	m.migrated = true
	return m.migrateErr
}
func (m *fakeManager) Users(db dbx.DBTX) users.Repository { return users.NewPostgresRepository(db) }
func (m *fakeManager) Carts(db dbx.DBTX) carts.Repository { return carts.NewPostgresRepository(db) }

func withSeams(t *testing.T, db *sql.DB, openErr error, m *fakeManager) {
	t.Helper()
	origOpen, origManager := openDB, newRepoManager
	t.Cleanup(func() {
		openDB, newRepoManager = origOpen, origManager
	})
	openDB = func(string) (*sql.DB, error) { return db, openErr }
	newRepoManager = func() repomanager.RepositoryManager { return m }
}

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.LoadDefaults()
	return cfg
}

func TestNewApp_Success(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	defer db.Close()
	mock.ExpectPing()

	m := &fakeManager{}
	withSeams(t, db, nil, m)

	app, err := NewApp(context.Background(), testConfig())
	if err != nil {
		t.Fatalf("NewApp error: %v", err)
	}
	if !m.migrated {
		t.Fatal("migrations were not run")
	}
	if app.userService == nil || app.cartService == nil || app.tokens == nil || app.metrics == nil {
		t.Fatalf("app not fully wired: %+v", app)
	}
}

func TestNewApp_OpenError(t *testing.T) {
	withSeams(t, nil, errors.New("bad dsn"), &fakeManager{})

	if _, err := NewApp(context.Background(), testConfig()); err == nil {
		t.Fatal("expected error")
	}
}

func TestNewApp_PingError(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	mock.ExpectPing().WillReturnError(errors.New("connection refused"))
	mock.ExpectClose()

	m := &fakeManager{}
	withSeams(t, db, nil, m)

	_, err = NewApp(context.Background(), testConfig())
	if err == nil || !strings.Contains(err.Error(), "connection refused") {
		t.Fatalf("expected ping error, got %v", err)
	}
	if m.migrated {
		t.Fatal("migrations must not run when the database is unreachable")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestNewApp_MigrationError(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	mock.ExpectPing()
	mock.ExpectClose()

	withSeams(t, db, nil, &fakeManager{migrateErr: errors.New("dirty")})

	if _, err := NewApp(context.Background(), testConfig()); err == nil {
		t.Fatal("expected migration error")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestNewApp_ProductionRejectsPlaceholderSecrets(t *testing.T) {
	opened := false
	origOpen := openDB
	t.Cleanup(func() { openDB = origOpen })
	openDB = func(string) (*sql.DB, error) {
		opened = true
		return nil, errors.New("must not be called")
	}

	cfg := testConfig()
	cfg.Mode = "production"

	_, err := NewApp(context.Background(), cfg)
	if !errors.Is(err, config.ErrPlaceholderSecret) {
		t.Fatalf("expected placeholder secret error, got %v", err)
	}
	if opened {
		t.Fatal("database must not be opened with an invalid config")
	}
}
