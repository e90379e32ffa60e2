// Package main is the entry point for the cw CLI tool.
package main

import (
	"github.com/anthropics/codewatch/internal/cmd"
)

func main() {
	cmd.Execute()
}
