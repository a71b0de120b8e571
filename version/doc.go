// Package version reports prefkit's build information.
//
// Release builds set the variables with -ldflags:
//
//	go build -ldflags "-X github.com/kbukum/prefkit/version.Version=0.3.0 \
//	  -X github.com/kbukum/prefkit/version.GitCommit=$(git rev-parse --short HEAD)" ./cmd/prefctl
//
// Development builds fall back to the VCS stamp embedded by the Go toolchain.
package version
