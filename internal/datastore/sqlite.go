package datastore

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/framegrade/framegrade/internal/errors"
	"github.com/framegrade/framegrade/internal/evaluation"
	"github.com/framegrade/framegrade/internal/logger"
)

const slowQueryThreshold = 200 * time.Millisecond

// SQLiteStore implements Interface for SQLite
type SQLiteStore struct {
	DB       *gorm.DB
	Path     string
	observer Observer
}

var _ Interface = (*SQLiteStore)(nil)

// NewSQLiteStore returns an unopened store for the database file at path.
// observer may be nil.
func NewSQLiteStore(path string, observer Observer) *SQLiteStore {
	return &SQLiteStore{Path: path, observer: observer}
}

// Open connects to the database and migrates the schema
func (store *SQLiteStore) Open() error {
	if store.Path == "" {
		return errors.ValidationError("sqlite path is empty")
	}
	if dir := filepath.Dir(store.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return dbError(err, "open").Context("path_type", "directory").Build()
		}
	}

	db, err := gorm.Open(sqlite.Open(store.Path), &gorm.Config{
		Logger: logger.NewGormLoggerAdapter(GetLogger(), slowQueryThreshold),
	})
	if err != nil {
		return dbError(fmt.Errorf("failed to open SQLite database: %w", err), "open").Build()
	}

	sqlDB, err := db.DB()
	if err != nil {
		return dbError(err, "open").Build()
	}
	// SQLite allows one writer; a single connection avoids lock errors
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(&Evaluation{}, &ClassShare{}); err != nil {
		_ = sqlDB.Close()
		return dbError(fmt.Errorf("schema migration failed: %w", err), "migrate").Build()
	}

	store.DB = db
	GetLogger().Debug("report store ready", logger.String("path", store.Path))
	return nil
}

// Save inserts the report and its class shares in one transaction
func (store *SQLiteStore) Save(r *evaluation.Report) (err error) {
	defer func() { store.observe("save", err) }()

	if store.DB == nil {
		return errNotOpen("save")
	}
	e := FromReport(r)
	if err := store.DB.Create(&e).Error; err != nil {
		return dbError(err, "save").Context("source", r.Source).Build()
	}
	return nil
}

// Get returns the evaluation with the given run id
func (store *SQLiteStore) Get(runID string) (_ *Evaluation, err error) {
	defer func() { store.observe("get", err) }()

	if store.DB == nil {
		return nil, errNotOpen("get")
	}
	var e Evaluation
	result := store.DB.Preload("Shares", func(db *gorm.DB) *gorm.DB {
		return db.Order("position")
	}).Where("run_id = ?", runID).Limit(1).Find(&e)
	if result.Error != nil {
		return nil, dbError(result.Error, "get").Build()
	}
	if result.RowsAffected == 0 {
		return nil, errors.Newf("evaluation %s not found", runID).
			Component("datastore").
			Category(errors.CategoryNotFound).
			Build()
	}
	return &e, nil
}

// List returns stored evaluations, newest first. An empty source matches
// every video; limit <= 0 means no limit.
func (store *SQLiteStore) List(source string, limit int) (_ []Evaluation, err error) {
	defer func() { store.observe("list", err) }()

	if store.DB == nil {
		return nil, errNotOpen("list")
	}
	query := store.DB.Preload("Shares", func(db *gorm.DB) *gorm.DB {
		return db.Order("position")
	}).Order("started_at desc").Order("id desc")
	if source != "" {
		query = query.Where("source = ?", source)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}

	var out []Evaluation
	if err := query.Find(&out).Error; err != nil {
		return nil, dbError(err, "list").Build()
	}
	return out, nil
}

// Close releases the database connection
func (store *SQLiteStore) Close() error {
	if store.DB == nil {
		return nil
	}
	sqlDB, err := store.DB.DB()
	if err != nil {
		return dbError(err, "close").Build()
	}
	store.DB = nil
	return sqlDB.Close()
}

func (store *SQLiteStore) observe(operation string, err error) {
	if store.observer != nil {
		store.observer.RecordStoreOperation(operation, err)
	}
}

func dbError(err error, operation string) *errors.ErrorBuilder {
	return errors.New(err).
		Component("datastore").
		Category(errors.CategoryDatabase).
		Context("operation", operation)
}

func errNotOpen(operation string) error {
	return dbError(fmt.Errorf("database connection is not initialized"), operation).Build()
}
