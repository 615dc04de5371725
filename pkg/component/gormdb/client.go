// Package gormdb 打开关系型图存储所用的 gorm 连接（MySQL / PostgreSQL / SQLite）。
package gormdb

import (
	"context"
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/kart-io/graphrag/pkg/component/storage"
	graphdbopts "github.com/kart-io/graphrag/pkg/options/graphdb"
)

// Client 封装 gorm.DB，实现 storage.Client。
type Client struct {
	db   *gorm.DB
	opts *graphdbopts.Options
}

var _ storage.Client = (*Client)(nil)

// New 按 opts.Driver 打开连接并校验连通性。
func New(ctx context.Context, opts *graphdbopts.Options) (*Client, error) {
	if opts == nil {
		return nil, fmt.Errorf("graphdb options cannot be nil")
	}

	dialector, err := dialectorFor(opts)
	if err != nil {
		return nil, err
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: NewGormLogger(logLevel(opts.LogLevel), 200*time.Millisecond),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", opts.Driver, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	if opts.Driver == graphdbopts.DriverSQLite {
		// SQLite 单写者；内存库每个连接是独立数据库。
		sqlDB.SetMaxOpenConns(1)
	} else {
		if opts.MaxIdleConnections > 0 {
			sqlDB.SetMaxIdleConns(opts.MaxIdleConnections)
		}
		if opts.MaxOpenConnections > 0 {
			sqlDB.SetMaxOpenConns(opts.MaxOpenConnections)
		}
		if opts.MaxConnectionLifeTime > 0 {
			sqlDB.SetConnMaxLifetime(opts.MaxConnectionLifeTime)
		}
	}

	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to ping %s: %w", opts.Driver, err)
	}

	return &Client{db: db, opts: opts}, nil
}

func dialectorFor(opts *graphdbopts.Options) (gorm.Dialector, error) {
	switch opts.Driver {
	case graphdbopts.DriverMySQL:
		return mysql.Open(opts.DSN()), nil
	case graphdbopts.DriverPostgres:
		return postgres.Open(opts.DSN()), nil
	case graphdbopts.DriverSQLite:
		return sqlite.Open(opts.DSN()), nil
	default:
		return nil, fmt.Errorf("unsupported graphdb driver %q", opts.Driver)
	}
}

func logLevel(level int) gormlogger.LogLevel {
	switch level {
	case 2:
		return gormlogger.Error
	case 3:
		return gormlogger.Warn
	case 4:
		return gormlogger.Info
	default:
		return gormlogger.Silent
	}
}

// Name returns the storage type identifier.
func (c *Client) Name() string {
	return c.opts.Driver
}

// Ping checks the connection.
func (c *Client) Ping(ctx context.Context) error {
	sqlDB, err := c.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close closes the underlying connection pool.
func (c *Client) Close() error {
	sqlDB, err := c.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// DB returns the gorm handle.
func (c *Client) DB() *gorm.DB {
	return c.db
}

// Options returns the options used to open the connection.
func (c *Client) Options() *graphdbopts.Options {
	return c.opts
}
