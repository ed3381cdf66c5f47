package db

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"
	"gorm.io/gorm/utils"
)

// Options configures the connection pool.
type Options struct {
	DSN          string
	MaxOpenConns int
	MaxIdleConns int
	LogLevel     string // error | warning | info | debug
	Logger       *zap.Logger
}

// OpenPostgres opens a pooled gorm handle. Each statement or transaction
// borrows a connection from the pool and returns it when done.
func OpenPostgres(ctx context.Context, opts Options) (*gorm.DB, error) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	dbConn, err := gorm.Open(postgres.Open(opts.DSN), &gorm.Config{
		Logger: &CustomPgLogger{
			Logger: logger,
			Config: gormLogger.Config{
				LogLevel:                  gormLevel(opts.LogLevel),
				Colorful:                  false,
				IgnoreRecordNotFoundError: true,
				SlowThreshold:             500 * time.Millisecond,
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	pool, err := dbConn.DB()
	if err != nil {
		return nil, fmt.Errorf("get pool: %w", err)
	}
	if opts.MaxOpenConns > 0 {
		pool.SetMaxOpenConns(opts.MaxOpenConns)
	}
	if opts.MaxIdleConns > 0 {
		pool.SetMaxIdleConns(opts.MaxIdleConns)
	}
	pool.SetConnMaxLifetime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := pool.PingContext(pingCtx); err != nil {
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	logger.Debug("postgres pool ready", zap.Int("max_open_conns", opts.MaxOpenConns))
	return dbConn, nil
}

// Sqlx wraps the pool behind a gorm handle for raw statements. Both share
// the same *sql.DB, so closing either closes both.
func Sqlx(dbConn *gorm.DB) (*sqlx.DB, error) {
	pool, err := dbConn.DB()
	if err != nil {
		return nil, err
	}
	return sqlx.NewDb(pool, "pgx"), nil
}

// Close releases every pooled connection.
func Close(dbConn *gorm.DB) error {
	pool, err := dbConn.DB()
	if err != nil {
		return err
	}
	return pool.Close()
}

func gormLevel(level string) gormLogger.LogLevel {
	switch strings.ToLower(level) {
	case "silent":
		return gormLogger.Silent
	case "error", "fatal", "panic", "dpanic":
		return gormLogger.Error
	case "debug", "info":
		return gormLogger.Info
	default:
		return gormLogger.Warn
	}
}

// CustomPgLogger sends gorm's statement log through zap.
type CustomPgLogger struct {
	Logger *zap.Logger
	Config gormLogger.Config
}

func (l *CustomPgLogger) LogMode(level gormLogger.LogLevel) gormLogger.Interface {
	newlogger := *l
	newlogger.Config.LogLevel = level
	return &newlogger
}

func (l *CustomPgLogger) Info(ctx context.Context, msg string, data ...interface{}) {
	if l.Config.LogLevel >= gormLogger.Info {
		l.Logger.Info(fmt.Sprintf(msg, data...), zap.String("source", utils.FileWithLineNum()), zap.String("agg_type", "gorm"))
	}
}

func (l *CustomPgLogger) Warn(ctx context.Context, msg string, data ...interface{}) {
	if l.Config.LogLevel >= gormLogger.Warn {
		l.Logger.Warn(fmt.Sprintf(msg, data...), zap.String("source", utils.FileWithLineNum()), zap.String("agg_type", "gorm"))
	}
}

func (l *CustomPgLogger) Error(ctx context.Context, msg string, data ...interface{}) {
	if l.Config.LogLevel >= gormLogger.Error {
		l.Logger.Error(fmt.Sprintf(msg, data...), zap.String("source", utils.FileWithLineNum()), zap.String("agg_type", "gorm"))
	}
}

func (l *CustomPgLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.Config.LogLevel <= gormLogger.Silent {
		return
	}
	elapsed := time.Since(begin)
	switch {
	case err != nil && l.Config.LogLevel >= gormLogger.Error && (!errors.Is(err, gormLogger.ErrRecordNotFound) || !l.Config.IgnoreRecordNotFoundError):
		sql, rows := fc()
		l.Logger.Error(err.Error(),
			zap.String("source", utils.FileWithLineNum()),
			zap.Float64("query_time", float64(elapsed.Nanoseconds())/1e6),
			zap.Int64("rows", rows),
			zap.String("sql", sql),
			zap.String("agg_type", "gorm"),
		)

	case elapsed > l.Config.SlowThreshold && l.Config.SlowThreshold != 0 && l.Config.LogLevel >= gormLogger.Warn:
		sql, rows := fc()
		l.Logger.Warn(fmt.Sprintf("SLOW SQL >= %v", l.Config.SlowThreshold),
			zap.String("source", utils.FileWithLineNum()),
			zap.Float64("query_time", float64(elapsed.Nanoseconds())/1e6),
			zap.Int64("rows", rows),
			zap.String("sql", sql),
			zap.String("agg_type", "gorm"),
		)

	case l.Config.LogLevel == gormLogger.Info:
		sql, rows := fc()
		l.Logger.Debug("sql log",
			zap.String("source", utils.FileWithLineNum()),
			zap.Float64("query_time", float64(elapsed.Nanoseconds())/1e6),
			zap.Int64("rows", rows),
			zap.String("sql", sql),
			zap.String("agg_type", "gorm"),
		)
	}
}
