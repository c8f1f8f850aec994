// Package database opens the snapshot archive and keeps its schema current.
package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dota-timeslice/replay-sampler/internal/config"
	"github.com/dota-timeslice/replay-sampler/internal/model"
	"github.com/glebarez/sqlite"
	"github.com/rs/zerolog"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// CreatedBy is stored in the archive info row of new archives.
const CreatedBy = "replay-sampler"

const (
	pingTimeout     = 5 * time.Second
	postgresMaxConn = 10
	postgresBatch   = 10_000
	sqliteBatch     = 2_000
)

// ErrNotConnected is returned by Setup before a successful Connect.
var ErrNotConnected = errors.New("database not connected")

// Manager owns the archive connection.
type Manager struct {
	DB      *gorm.DB
	IsValid bool
	Local   bool // archive is a SQLite file or lives in memory
	Config  config.ArchiveConfig
	Logger  zerolog.Logger

	pool *sql.DB
}

// NewManager creates a new database manager.
func NewManager(cfg config.ArchiveConfig, log zerolog.Logger) *Manager {
	return &Manager{
		Config: cfg,
		Logger: log,
	}
}

// Connect opens the configured archive. A postgres archive that cannot be
// reached falls back to the local SQLite file.
func (m *Manager) Connect() error {
	var err error
	switch m.Config.Type {
	case "postgres":
		if err = m.openPostgres(); err != nil {
			m.Logger.Error().Err(err).Msg("Failed to connect to Postgres DB, trying SQLite")
			err = m.openSQLite(m.Config.SQLite.Path)
		}
	case "sqlite":
		err = m.openSQLite(m.Config.SQLite.Path)
	default:
		err = fmt.Errorf("unknown archive type: %s", m.Config.Type)
	}

	m.IsValid = err == nil
	return err
}

func gormConfig(batch int) *gorm.Config {
	return &gorm.Config{
		SkipDefaultTransaction: true,
		CreateBatchSize:        batch,
		Logger:                 logger.Default.LogMode(logger.Silent),
	}
}

func postgresDSN(c config.DBConfig) string {
	return fmt.Sprintf(`host=%s port=%s user=%s password=%s dbname=%s sslmode=disable`,
		c.Host, c.Port, c.Username, c.Password, c.Database)
}

func (m *Manager) openPostgres() error {
	c := m.Config.DB
	m.Logger.Debug().Str("host", c.Host).Str("port", c.Port).Str("database", c.Database).
		Msg("Connecting to Postgres DB")

	db, err := gorm.Open(postgres.New(postgres.Config{
		DSN:                  postgresDSN(c),
		PreferSimpleProtocol: true,
	}), gormConfig(postgresBatch))
	if err != nil {
		return err
	}
	pool, err := db.DB()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	if err := pool.PingContext(ctx); err != nil {
		_ = pool.Close()
		return err
	}
	pool.SetMaxOpenConns(postgresMaxConn)

	m.DB, m.pool, m.Local = db, pool, false
	m.Logger.Info().Str("host", c.Host).Msg("Connected to Postgres archive")
	return nil
}

// sqlitePragmas tunes SQLite for a single writer. File archives use WAL.
func sqlitePragmas(inMemory bool) []string {
	journal := "WAL"
	if inMemory {
		journal = "MEMORY"
	}
	return []string{
		"PRAGMA journal_mode = " + journal + ";",
		"PRAGMA synchronous = NORMAL;",
		"PRAGMA cache_size = -32000;",
		"PRAGMA temp_store = MEMORY;",
		"PRAGMA foreign_keys = ON;",
	}
}

// openSQLite opens the archive at path, or an in-memory archive when path is
// empty.
func (m *Manager) openSQLite(path string) error {
	inMemory := path == ""
	dsn := path
	if inMemory {
		dsn = "file::memory:"
	}

	cfg := gormConfig(sqliteBatch)
	cfg.PrepareStmt = true
	db, err := gorm.Open(sqlite.Open(dsn), cfg)
	if err != nil {
		return fmt.Errorf("failed to get local SQLite DB: %w", err)
	}
	pool, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to access sql interface: %w", err)
	}
	// an in-memory database lives per connection
	if inMemory {
		pool.SetMaxOpenConns(1)
	}

	for _, pragma := range sqlitePragmas(inMemory) {
		if err := db.Exec(pragma).Error; err != nil {
			_ = pool.Close()
			return fmt.Errorf("error setting PRAGMA: %w", err)
		}
	}

	m.DB, m.pool, m.Local = db, pool, true
	if inMemory {
		m.Logger.Info().Msg("Using local SQLite DB in memory")
	} else {
		m.Logger.Info().Str("path", path).Msg("Using local SQLite DB")
	}
	return nil
}

// Setup migrates the tables and records the schema version. An archive
// written by a newer schema is refused.
func (m *Manager) Setup() error {
	if m.DB == nil {
		return ErrNotConnected
	}

	var info model.ArchiveInfo
	found := m.DB.Migrator().HasTable(&info)
	if found {
		res := m.DB.Order("id").Limit(1).Find(&info)
		if res.Error != nil {
			return fmt.Errorf("failed to read archive info: %w", res.Error)
		}
		found = res.RowsAffected > 0
	}
	if found && info.SchemaVersion > model.SchemaVersion {
		m.IsValid = false
		return fmt.Errorf("archive schema v%d is newer than supported v%d", info.SchemaVersion, model.SchemaVersion)
	}

	m.Logger.Info().Int("schemaVersion", model.SchemaVersion).Msg("Migrating schema")
	if err := Migrate(m.DB); err != nil {
		m.IsValid = false
		return err
	}

	var err error
	switch {
	case !found:
		err = m.DB.Create(&model.ArchiveInfo{SchemaVersion: model.SchemaVersion, CreatedBy: CreatedBy}).Error
	case info.SchemaVersion < model.SchemaVersion:
		err = m.DB.Model(&info).Update("schema_version", model.SchemaVersion).Error
	}
	if err != nil {
		m.IsValid = false
		return fmt.Errorf("failed to write archive info: %w", err)
	}
	return nil
}

// Migrate creates or updates every archive table.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(model.DatabaseModels...); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	return nil
}

// Close closes the connection pool. It is safe to call more than once.
func (m *Manager) Close() error {
	m.IsValid = false
	if m.pool == nil {
		return nil
	}
	err := m.pool.Close()
	m.pool = nil
	return err
}
