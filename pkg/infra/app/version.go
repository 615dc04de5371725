package app

import (
	"github.com/kart-io/version"
)

// GetVersion returns the git version string baked in at build time.
func GetVersion() string {
	return version.Get().GitVersion
}
