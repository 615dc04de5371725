// Package graphdbopts provides options for the relational graph store.
//
// The relational store keeps entities and relations in plain tables and is
// reachable through gorm with a MySQL, PostgreSQL or SQLite dialector.
package graphdbopts

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/pflag"

	"github.com/kart-io/graphrag/pkg/options"
)

var _ options.IOptions = (*Options)(nil)

// Supported drivers.
const (
	DriverMySQL    = "mysql"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Options defines configuration options for the SQL graph database.
type Options struct {
	Driver                string        `json:"driver" mapstructure:"driver"`
	Host                  string        `json:"host" mapstructure:"host"`
	Port                  int           `json:"port" mapstructure:"port"`
	Username              string        `json:"username" mapstructure:"username"`
	Password              string        `json:"-" mapstructure:"password"`
	Database              string        `json:"database" mapstructure:"database"`
	SSLMode               string        `json:"ssl-mode" mapstructure:"ssl-mode"`
	MaxIdleConnections    int           `json:"max-idle-connections" mapstructure:"max-idle-connections"`
	MaxOpenConnections    int           `json:"max-open-connections" mapstructure:"max-open-connections"`
	MaxConnectionLifeTime time.Duration `json:"max-connection-life-time" mapstructure:"max-connection-life-time"`
	// LogLevel gorm 日志级别：1 Silent，2 Error，3 Warn，4 Info。
	LogLevel int `json:"log-level" mapstructure:"log-level"`
	// AutoMigrate 启动时自动建表。
	AutoMigrate bool `json:"auto-migrate" mapstructure:"auto-migrate"`
}

// NewOptions creates a new Options object with default values.
func NewOptions() *Options {
	return &Options{
		Driver:                DriverSQLite,
		Host:                  "127.0.0.1",
		Database:              "graphrag.db",
		SSLMode:               "disable",
		MaxIdleConnections:    10,
		MaxOpenConnections:    100,
		MaxConnectionLifeTime: 10 * time.Second,
		LogLevel:              1,
		AutoMigrate:           true,
	}
}

// AddFlags adds flags for graph database options to the specified FlagSet.
func (o *Options) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	p := options.Join(prefixes...)
	fs.StringVar(&o.Driver, p+"graphdb.driver", o.Driver, "SQL graph store driver: mysql, postgres or sqlite.")
	fs.StringVar(&o.Host, p+"graphdb.host", o.Host, "SQL graph store host.")
	fs.IntVar(&o.Port, p+"graphdb.port", o.Port, "SQL graph store port (0 picks the driver default).")
	fs.StringVar(&o.Username, p+"graphdb.username", o.Username, "SQL graph store username.")
	fs.StringVar(&o.Password, p+"graphdb.password", o.Password, "SQL graph store password (prefer GRAPHDB_PASSWORD env var).")
	fs.StringVar(&o.Database, p+"graphdb.database", o.Database, "Database name, or file path for sqlite.")
	fs.StringVar(&o.SSLMode, p+"graphdb.ssl-mode", o.SSLMode, "PostgreSQL SSL mode.")
	fs.IntVar(&o.MaxIdleConnections, p+"graphdb.max-idle-connections", o.MaxIdleConnections, "Max idle connections.")
	fs.IntVar(&o.MaxOpenConnections, p+"graphdb.max-open-connections", o.MaxOpenConnections, "Max open connections.")
	fs.DurationVar(&o.MaxConnectionLifeTime, p+"graphdb.max-connection-life-time", o.MaxConnectionLifeTime, "Max connection life time.")
	fs.IntVar(&o.LogLevel, p+"graphdb.log-level", o.LogLevel, "gorm log level (1 silent .. 4 info).")
	fs.BoolVar(&o.AutoMigrate, p+"graphdb.auto-migrate", o.AutoMigrate, "Create graph tables on startup.")
}

// Complete fills driver default ports and reads the password from env.
func (o *Options) Complete() error {
	if o.Password == "" {
		o.Password = os.Getenv("GRAPHDB_PASSWORD")
	}
	if o.Port == 0 {
		switch o.Driver {
		case DriverMySQL:
			o.Port = 3306
		case DriverPostgres:
			o.Port = 5432
		}
	}
	return nil
}

// Validate checks if the options are valid.
func (o *Options) Validate() []error {
	if o == nil {
		return nil
	}

	var errs []error
	switch o.Driver {
	case DriverMySQL, DriverPostgres, DriverSQLite:
	default:
		errs = append(errs, fmt.Errorf("graphdb.driver %q is not supported", o.Driver))
	}
	if o.Database == "" {
		errs = append(errs, fmt.Errorf("graphdb.database is required"))
	}
	if o.LogLevel < 1 || o.LogLevel > 4 {
		errs = append(errs, fmt.Errorf("graphdb.log-level must be within 1..4"))
	}
	return errs
}

// DSN builds the data source name for the configured driver.
func (o *Options) DSN() string {
	switch o.Driver {
	case DriverMySQL:
		return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local",
			o.Username, o.Password, o.Host, o.Port, o.Database)
	case DriverPostgres:
		return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
			o.Host, o.Port, o.Username, o.Password, o.Database, o.SSLMode)
	default:
		return o.Database
	}
}
