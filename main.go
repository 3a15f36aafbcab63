// Package main is the entry point for the jitfuzz CLI.
package main

import "jitfuzz.dev/pkg/jitfuzz/cmd"

func main() {
	cmd.Execute()
}
