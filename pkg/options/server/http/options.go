// Package http provides HTTP server configuration options.
package http

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/pflag"

	"github.com/kart-io/graphrag/pkg/options"
)

var _ options.IOptions = (*Options)(nil)

// Options contains HTTP server configuration.
type Options struct {
	// Addr is the address to listen on.
	Addr string `json:"addr" mapstructure:"addr"`
	// Mode is the gin mode (debug, release, test).
	Mode string `json:"mode" mapstructure:"mode"`
	// ReadTimeout is the maximum duration for reading the entire request.
	ReadTimeout time.Duration `json:"read-timeout" mapstructure:"read-timeout"`
	// WriteTimeout bounds a whole response, SSE streams included.
	WriteTimeout time.Duration `json:"write-timeout" mapstructure:"write-timeout"`
	// IdleTimeout is the maximum amount of time to wait for the next request.
	IdleTimeout time.Duration `json:"idle-timeout" mapstructure:"idle-timeout"`
	// AllowOrigins 跨域白名单，"*" 表示全部放行。
	AllowOrigins []string `json:"allow-origins" mapstructure:"allow-origins"`
	// EnableSwagger 是否挂载 /swagger 文档路由。
	EnableSwagger bool `json:"enable-swagger" mapstructure:"enable-swagger"`
}

// Option is a function that configures Options.
type Option func(*Options)

// NewOptions creates a new Options with default values.
func NewOptions() *Options {
	return &Options{
		Addr:          ":8000",
		Mode:          gin.ReleaseMode,
		ReadTimeout:   30 * time.Second,
		WriteTimeout:  5 * time.Minute,
		IdleTimeout:   60 * time.Second,
		AllowOrigins:  []string{"*"},
		EnableSwagger: true,
	}
}

// AddFlags adds flags for HTTP options to the specified FlagSet.
func (o *Options) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	p := options.Join(prefixes...)
	fs.StringVar(&o.Addr, p+"http.addr", o.Addr, "Specify the HTTP server bind address and port.")
	fs.StringVar(&o.Mode, p+"http.mode", o.Mode, "Gin mode: debug, release or test.")
	fs.DurationVar(&o.ReadTimeout, p+"http.read-timeout", o.ReadTimeout, "Timeout for reading the entire request.")
	fs.DurationVar(&o.WriteTimeout, p+"http.write-timeout", o.WriteTimeout, "Timeout before timing out writes of the response (covers SSE streams).")
	fs.DurationVar(&o.IdleTimeout, p+"http.idle-timeout", o.IdleTimeout, "Maximum amount of time to wait for the next request.")
	fs.StringSliceVar(&o.AllowOrigins, p+"http.allow-origins", o.AllowOrigins, "CORS allowed origins.")
	fs.BoolVar(&o.EnableSwagger, p+"http.enable-swagger", o.EnableSwagger, "Serve the Swagger UI under /swagger.")
}

// Validate validates the HTTP options.
func (o *Options) Validate() []error {
	if o == nil {
		return nil
	}

	var errs []error

	if o.Addr == "" {
		errs = append(errs, fmt.Errorf("http.addr cannot be empty"))
	}
	switch o.Mode {
	case gin.DebugMode, gin.ReleaseMode, gin.TestMode:
	default:
		errs = append(errs, fmt.Errorf("http.mode %q is not one of debug, release, test", o.Mode))
	}
	if o.ReadTimeout <= 0 {
		errs = append(errs, fmt.Errorf("http.read-timeout must be positive"))
	}
	if o.WriteTimeout <= 0 {
		errs = append(errs, fmt.Errorf("http.write-timeout must be positive"))
	}

	return errs
}

// Complete completes the HTTP options with defaults.
func (o *Options) Complete() error {
	if o.IdleTimeout <= 0 {
		o.IdleTimeout = 60 * time.Second
	}
	if len(o.AllowOrigins) == 0 {
		o.AllowOrigins = []string{"*"}
	}
	return nil
}

// WithAddr sets the listen address.
func WithAddr(addr string) Option {
	return func(o *Options) {
		o.Addr = addr
	}
}

// WithMode sets the gin mode.
func WithMode(mode string) Option {
	return func(o *Options) {
		o.Mode = mode
	}
}

// ApplyOptions applies the given options to the Options.
func (o *Options) ApplyOptions(opts ...Option) {
	for _, opt := range opts {
		opt(o)
	}
}
