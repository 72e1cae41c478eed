// Package main provides the pluginlattice CLI entry point: a thin
// demonstration host binding over the internal core, not part of the
// core's public API.
package main

func main() {
	Execute()
}
