// Package neo4jopts provides options for the Neo4j driver.
package neo4jopts

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/pflag"

	"github.com/kart-io/graphrag/pkg/options"
)

var _ options.IOptions = (*Options)(nil)

// Options contains Neo4j driver configuration.
type Options struct {
	URI      string `json:"uri" mapstructure:"uri"`
	Username string `json:"username" mapstructure:"username"`
	Password string `json:"-" mapstructure:"password"`
	Database string `json:"database" mapstructure:"database"`
	// MaxConnectionPoolSize 驱动连接池上限。
	MaxConnectionPoolSize int           `json:"max-connection-pool-size" mapstructure:"max-connection-pool-size"`
	ConnectTimeout        time.Duration `json:"connect-timeout" mapstructure:"connect-timeout"`
}

// NewOptions creates new Options with defaults.
func NewOptions() *Options {
	return &Options{
		URI:                   "bolt://localhost:7687",
		Username:              "neo4j",
		Database:              "neo4j",
		MaxConnectionPoolSize: 50,
		ConnectTimeout:        10 * time.Second,
	}
}

// AddFlags adds flags to the flagset.
func (o *Options) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	p := options.Join(prefixes...)
	fs.StringVar(&o.URI, p+"neo4j.uri", o.URI, "Neo4j bolt/neo4j URI.")
	fs.StringVar(&o.Username, p+"neo4j.username", o.Username, "Neo4j username.")
	fs.StringVar(&o.Password, p+"neo4j.password", o.Password, "Neo4j password (prefer NEO4J_PASSWORD env var).")
	fs.StringVar(&o.Database, p+"neo4j.database", o.Database, "Neo4j database name.")
	fs.IntVar(&o.MaxConnectionPoolSize, p+"neo4j.max-connection-pool-size", o.MaxConnectionPoolSize, "Neo4j connection pool size.")
	fs.DurationVar(&o.ConnectTimeout, p+"neo4j.connect-timeout", o.ConnectTimeout, "Neo4j connectivity check timeout.")
}

// Complete reads the password from the environment when unset.
func (o *Options) Complete() error {
	if o.Password == "" {
		o.Password = os.Getenv("NEO4J_PASSWORD")
	}
	return nil
}

// Validate validates the options.
func (o *Options) Validate() []error {
	if o == nil {
		return nil
	}

	var errs []error
	switch {
	case o.URI == "":
		errs = append(errs, fmt.Errorf("neo4j uri is required"))
	case !strings.Contains(o.URI, "://"):
		errs = append(errs, fmt.Errorf("neo4j uri %q has no scheme", o.URI))
	}
	if o.ConnectTimeout <= 0 {
		errs = append(errs, fmt.Errorf("neo4j connect-timeout must be positive"))
	}
	return errs
}

// String returns a string representation with password redacted.
func (o *Options) String() string {
	return fmt.Sprintf("Neo4j{uri=%s, username=%s, database=%s}", o.URI, o.Username, o.Database)
}
