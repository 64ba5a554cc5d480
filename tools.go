//go:build tools
// +build tools

// Package tools declares tool dependencies for this module so that
// `go generate` (mockgen) resolves from go.mod.
package tools

import (
	_ "go.uber.org/mock/mockgen"
)
