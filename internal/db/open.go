package db

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/jackc/pgx/v5/pgconn"
	log "github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	sqliteBusyTimeout  = 5 * time.Second
	slowQueryThreshold = 200 * time.Millisecond
)

// gormWriter forwards GORM log lines to logrus.
type gormWriter struct{}

func (gormWriter) Printf(format string, args ...any) {
	log.Warnf(format, args...)
}

// newLogger reports slow queries and errors through logrus, skipping record-not-found.
func newLogger() logger.Interface {
	return logger.New(gormWriter{}, logger.Config{
		SlowThreshold:             slowQueryThreshold,
		LogLevel:                  logger.Warn,
		IgnoreRecordNotFoundError: true,
	})
}

// Open connects to the database described by dsn.
// DSNs starting with "file:" use SQLite; everything else is treated as PostgreSQL.
func Open(dsn string) (*gorm.DB, error) {
	trimmed := strings.TrimSpace(dsn)
	if trimmed == "" {
		return nil, fmt.Errorf("db: empty dsn")
	}
	cfg := &gorm.Config{
		Logger: newLogger(),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	}

	if isSQLiteDSN(trimmed) {
		conn, errOpen := gorm.Open(sqlite.Open(trimmed), cfg)
		if errOpen != nil {
			return nil, fmt.Errorf("db: open sqlite: %w", errOpen)
		}
		sqlDB, errDB := conn.DB()
		if errDB != nil {
			return nil, fmt.Errorf("db: sqlite handle: %w", errDB)
		}
		// SQLite allows a single writer; one connection keeps transactions serialized.
		sqlDB.SetMaxOpenConns(1)
		pragmas := []string{
			fmt.Sprintf("PRAGMA busy_timeout = %d", sqliteBusyTimeout.Milliseconds()),
			"PRAGMA foreign_keys = ON",
		}
		for _, pragma := range pragmas {
			if errExec := conn.Exec(pragma).Error; errExec != nil {
				return nil, fmt.Errorf("db: %s: %w", pragma, errExec)
			}
		}
		return conn, nil
	}

	if _, errParse := pgconn.ParseConfig(trimmed); errParse != nil {
		return nil, fmt.Errorf("db: parse postgres dsn: %w", errParse)
	}
	conn, errOpen := gorm.Open(postgres.Open(trimmed), cfg)
	if errOpen != nil {
		return nil, fmt.Errorf("db: open postgres: %w", errOpen)
	}
	return conn, nil
}

func isSQLiteDSN(dsn string) bool {
	return strings.HasPrefix(strings.ToLower(dsn), "file:")
}

// DSNInfo summarizes a DSN without exposing credentials.
type DSNInfo struct {
	Dialect     string
	Host        string
	Port        int
	User        string
	Database    string
	Path        string
	PasswordSet bool
}

// String renders the DSN summary for logs.
func (i DSNInfo) String() string {
	if i.Dialect == DialectSQLite {
		return "sqlite:" + i.Path
	}
	return i.Dialect + "://" + i.User + "@" + i.Host + ":" + strconv.Itoa(i.Port) + "/" + i.Database
}

// DescribeDSN parses dsn into a credential-free summary.
func DescribeDSN(dsn string) (DSNInfo, error) {
	trimmed := strings.TrimSpace(dsn)
	if trimmed == "" {
		return DSNInfo{}, fmt.Errorf("empty dsn")
	}

	if isSQLiteDSN(trimmed) {
		pathPart := trimmed[len("file:"):]
		pathPart, _, _ = strings.Cut(pathPart, "?")
		return DSNInfo{
			Dialect: DialectSQLite,
			Path:    strings.TrimSpace(pathPart),
		}, nil
	}

	cfg, errParse := pgconn.ParseConfig(trimmed)
	if errParse != nil {
		return DSNInfo{}, fmt.Errorf("parse dsn: %w", errParse)
	}
	return DSNInfo{
		Dialect:     DialectPostgres,
		Host:        cfg.Host,
		Port:        int(cfg.Port),
		User:        cfg.User,
		Database:    cfg.Database,
		PasswordSet: cfg.Password != "",
	}, nil
}
