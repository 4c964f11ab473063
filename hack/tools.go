//go:build tools
// +build tools

// Package tools pins the code generators and linters used by the hack scripts.
package tools

import (
	_ "k8s.io/code-generator"
	_ "sigs.k8s.io/logtools/logcheck"
)
