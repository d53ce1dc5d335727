// Package main provides the cabinet binary.
package main

import "github.com/mesh-intelligence/cabinet/internal/cli"

func main() {
	cli.Execute()
}
