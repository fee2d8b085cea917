// Package build holds version information set at link time with
// -ldflags "-X github.com/drummonds/pdfreader/internal/build.Version=v1.2.3".
package build

var (
	Version   = "dev"
	BuildDate = ""
)
