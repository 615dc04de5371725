// Package options defines the option contract shared by every configurable
// component of the GraphRAG service.
package options

import (
	"strings"

	"github.com/spf13/pflag"
)

// Join concatenates prefixes with "." and appends a trailing "." when the
// result is non-empty, e.g. Join("chat", "smart") == "chat.smart.".
func Join(prefixes ...string) string {
	var parts []string
	for _, p := range prefixes {
		p = strings.Trim(p, ".")
		if p != "" {
			parts = append(parts, p)
		}
	}
	if len(parts) == 0 {
		return ""
	}
	return strings.Join(parts, ".") + "."
}

// IOptions defines methods to implement a generic options.
type IOptions interface {
	// Validate validates all the required options.
	Validate() []error

	// AddFlags adds flags related to given flagset.
	AddFlags(fs *pflag.FlagSet, prefixes ...string)
}

// Completer is implemented by options that derive defaults after flags and
// config files have been applied.
type Completer interface {
	Complete() error
}
