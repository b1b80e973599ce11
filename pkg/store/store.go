// Package store is the authoritative catalog store: products, baskets,
// orders, users, photo links and drop access, all in PostgreSQL.
package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/nikixstore/storefront/pkg/builder"
	"github.com/nikixstore/storefront/pkg/migration"
	"github.com/nikixstore/storefront/pkg/models"
	"github.com/nikixstore/storefront/pkg/registry"
	"github.com/nikixstore/storefront/pkg/runtime"
	"github.com/nikixstore/storefront/pkg/schema"
)

// SchemaVersion is the version of the generated initial migration.
const SchemaVersion = "20240601000000"

// Store wraps the database connection with catalog operations.
type Store struct {
	db  *runtime.DB
	log *slog.Logger
}

// New returns a Store over db.
func New(db *runtime.DB, log *slog.Logger) *Store {
	if log == nil {
		log = slog.Default()
	}
	return &Store{db: db, log: log}
}

// DB returns the underlying connection.
func (s *Store) DB() *runtime.DB {
	return s.db
}

// Ping checks the database connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

// Migrations returns the schema migrations generated from the models.
func Migrations() ([]migration.Migration, error) {
	var tables []*schema.TableMetadata
	for _, model := range models.Tables() {
		table, err := registry.GetOrRegister(model)
		if err != nil {
			return nil, err
		}
		tables = append(tables, table)
	}
	return []migration.Migration{
		migration.NewPlanner().Plan(SchemaVersion, "initial_schema", tables),
	}, nil
}

// Migrate applies every pending migration and returns the applied versions.
func (s *Store) Migrate(ctx context.Context) ([]string, error) {
	migrations, err := Migrations()
	if err != nil {
		return nil, err
	}
	exec := migration.NewExecutor(s.db.Pool())
	if err := exec.Initialize(ctx); err != nil {
		return nil, err
	}
	return exec.ApplyAll(ctx, migrations, false)
}

// MigrationStatus reports the state of every known migration.
func (s *Store) MigrationStatus(ctx context.Context) ([]migration.MigrationRecord, error) {
	migrations, err := Migrations()
	if err != nil {
		return nil, err
	}
	exec := migration.NewExecutor(s.db.Pool())
	if err := exec.Initialize(ctx); err != nil {
		return nil, err
	}
	return exec.GetStatus(ctx, migrations)
}

// RowError records one failed row of a batch operation.
type RowError struct {
	Row     int
	Article string
	Err     error
}

func (e RowError) Error() string {
	return fmt.Sprintf("row %d (%s): %v", e.Row, e.Article, e.Err)
}

// Users

// AddUser records a user; repeated calls for the same id are ignored.
// It reports whether the user was new.
func (s *Store) AddUser(ctx context.Context, userID int64, userName, firstName string) (bool, error) {
	n, err := builder.Insert[models.User](s.db).
		Values(models.User{UserID: userID, UserName: userName, FirstName: firstName}).
		OnConflictDoNothing("user_id").
		Exec(ctx)
	if err != nil {
		return false, fmt.Errorf("add user %d: %w", userID, err)
	}
	return n == 1, nil
}

// Users returns every known user profile.
func (s *Store) Users(ctx context.Context) ([]models.User, error) {
	return builder.Select[models.User](s.db).OrderByAsc("id").All(ctx)
}

// UserIDs returns the chat ids of every known user.
func (s *Store) UserIDs(ctx context.Context) ([]int64, error) {
	users, err := builder.Select[models.User](s.db).Columns("user_id").All(ctx)
	if err != nil {
		return nil, err
	}
	ids := make([]int64, len(users))
	for i, u := range users {
		ids[i] = u.UserID
	}
	return ids, nil
}

// User returns one user profile.
func (s *Store) User(ctx context.Context, userID int64) (*models.User, error) {
	return builder.Select[models.User](s.db).Where(builder.Eq("user_id", userID)).First(ctx)
}

// Photos

// ReplacePhotoLinks deletes every photo row and inserts rows one by one.
// A failing row does not stop the others.
func (s *Store) ReplacePhotoLinks(ctx context.Context, rows []models.PhotoLinks) ([]RowError, error) {
	if _, err := builder.Delete[models.PhotoLinks](s.db).Exec(ctx); err != nil {
		return nil, fmt.Errorf("clear photo links: %w", err)
	}
	var failed []RowError
	for i, row := range rows {
		if _, err := builder.Insert[models.PhotoLinks](s.db).Values(row).Exec(ctx); err != nil {
			failed = append(failed, RowError{Row: i + 1, Article: row.Article, Err: err})
		}
	}
	return failed, nil
}

// PhotoLinks returns the extra photos of article.
func (s *Store) PhotoLinks(ctx context.Context, article string) (*models.PhotoLinks, error) {
	return builder.Select[models.PhotoLinks](s.db).Where(builder.Eq("art", article)).First(ctx)
}

// Drop access

// DropAccessUsers returns the users holding access to the current drop.
func (s *Store) DropAccessUsers(ctx context.Context) ([]int64, error) {
	rows, err := builder.Select[models.DropAccess](s.db).All(ctx)
	if err != nil {
		return nil, err
	}
	ids := make([]int64, len(rows))
	for i, r := range rows {
		ids[i] = r.UserID
	}
	return ids, nil
}

// GrantDropAccess records that userID entered the drop password.
func (s *Store) GrantDropAccess(ctx context.Context, userID int64) error {
	_, err := builder.Insert[models.DropAccess](s.db).
		Values(models.DropAccess{UserID: userID}).
		OnConflictDoNothing("user_id").
		Exec(ctx)
	return err
}

// ClearDropAccess revokes access for everyone.
func (s *Store) ClearDropAccess(ctx context.Context) error {
	_, err := builder.Delete[models.DropAccess](s.db).Exec(ctx)
	return err
}

// DropInfo returns the drop description, or a zero value when none was saved.
func (s *Store) DropInfo(ctx context.Context) (models.DropInfo, error) {
	info, err := builder.Select[models.DropInfo](s.db).Where(builder.Eq("id", models.DropInfoID)).First(ctx)
	if errors.Is(err, runtime.ErrNotFound) {
		return models.DropInfo{ID: models.DropInfoID}, nil
	}
	if err != nil {
		return models.DropInfo{}, err
	}
	return *info, nil
}

// SaveDropInfo overwrites the drop description.
func (s *Store) SaveDropInfo(ctx context.Context, info models.DropInfo) error {
	info.ID = models.DropInfoID
	_, err := builder.Insert[models.DropInfo](s.db).
		Values(info).
		OnConflictDoUpdate([]string{"id"}, "password", "start_date", "stop_date").
		Exec(ctx)
	return err
}

func since(start time.Time) slog.Attr {
	return slog.Duration("took", time.Since(start))
}
