package database

import (
	"fmt"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/tubtip/tubtip/app/models"
	"github.com/tubtip/tubtip/internal/pkg/config"
	"github.com/tubtip/tubtip/internal/pkg/logger"
)

const maxRetries = 5
const retryDelay = 5 * time.Second

const sqlitePrefix = "sqlite://"

// Open connects to the configured database, retrying while the server comes
// up. DATABASE_URL is a MySQL DSN ("user:pass@tcp(host:3306)/db") or, for
// local development, "sqlite://<path>".
func Open(cfg config.DatabaseConfig) (*gorm.DB, error) {
	log := logger.WithComponent("database")

	gormCfg := &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(gormlogger.Warn),
	}

	var (
		db  *gorm.DB
		err error
	)
	for i := 0; i < maxRetries; i++ {
		db, err = gorm.Open(dialector(cfg.URL), gormCfg)
		if err == nil {
			break
		}
		log.Warn().Err(err).Msgf("failed to connect to database (try %d/%d)", i+1, maxRetries)
		if i < maxRetries-1 {
			time.Sleep(retryDelay)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	if strings.HasPrefix(cfg.URL, sqlitePrefix) {
		// SQLite allows one writer; serialise through a single connection.
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
		sqlDB.SetConnMaxLifetime(time.Hour)
	}

	if cfg.AutoMigrate {
		if err := AutoMigrate(db); err != nil {
			return nil, err
		}
	}

	log.Info().Str("dialect", db.Dialector.Name()).Msg("database connected")
	return db, nil
}

func dialector(url string) gorm.Dialector {
	if strings.HasPrefix(url, sqlitePrefix) {
		path := strings.TrimPrefix(url, sqlitePrefix)
		return sqlite.Open(path + sqlitePragmas(path))
	}
	return mysql.New(mysql.Config{
		DSN:                       withMySQLDefaults(url),
		DefaultStringSize:         256,
		DisableDatetimePrecision:  true,
		DontSupportRenameIndex:    true,
		DontSupportRenameColumn:   true,
		SkipInitializeWithVersion: false,
	})
}

// withMySQLDefaults makes sure time columns scan into time.Time.
func withMySQLDefaults(dsn string) string {
	if strings.Contains(dsn, "parseTime=") {
		return dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + "charset=utf8mb4&parseTime=True&loc=UTC"
}

func sqlitePragmas(path string) string {
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return sep + "_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
}

// AutoMigrate creates or updates the schema from the models. Production
// schemas are managed by the migrate command instead.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(models.AllModels()...)
}

// Ping checks the connection for health endpoints.
func Ping(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}
