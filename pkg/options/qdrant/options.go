// Package qdrantopts provides options for the Qdrant gRPC client.
package qdrantopts

import (
	"fmt"
	"time"

	"github.com/spf13/pflag"

	"github.com/kart-io/graphrag/pkg/options"
)

var _ options.IOptions = (*Options)(nil)

// Options contains Qdrant client configuration.
type Options struct {
	// Host Qdrant 服务地址。
	Host string `json:"host" mapstructure:"host"`
	// Port gRPC 端口，默认 6334。
	Port int `json:"port" mapstructure:"port"`
	// APIKey 访问密钥，可选。
	APIKey string `json:"-" mapstructure:"api-key"`
	// UseTLS 是否启用 TLS。
	UseTLS bool `json:"use-tls" mapstructure:"use-tls"`
	// Timeout 单次操作超时。
	Timeout time.Duration `json:"timeout" mapstructure:"timeout"`
}

// NewOptions creates new Options with defaults.
func NewOptions() *Options {
	return &Options{
		Host:    "localhost",
		Port:    6334,
		Timeout: 30 * time.Second,
	}
}

// AddFlags adds flags to the flagset.
func (o *Options) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	p := options.Join(prefixes...)
	fs.StringVar(&o.Host, p+"qdrant.host", o.Host, "Qdrant host.")
	fs.IntVar(&o.Port, p+"qdrant.port", o.Port, "Qdrant gRPC port.")
	fs.StringVar(&o.APIKey, p+"qdrant.api-key", o.APIKey, "Qdrant API key.")
	fs.BoolVar(&o.UseTLS, p+"qdrant.use-tls", o.UseTLS, "Use TLS when talking to Qdrant.")
	fs.DurationVar(&o.Timeout, p+"qdrant.timeout", o.Timeout, "Qdrant operation timeout.")
}

// Validate validates the options.
func (o *Options) Validate() []error {
	if o == nil {
		return nil
	}

	var errs []error
	if o.Host == "" {
		errs = append(errs, fmt.Errorf("qdrant host is required"))
	}
	if o.Port <= 0 || o.Port > 65535 {
		errs = append(errs, fmt.Errorf("qdrant port %d out of range", o.Port))
	}
	if o.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("qdrant timeout must be positive"))
	}
	return errs
}
