// Package main is the entry point for the clerkbot binary.
package main

import "github.com/jvaisto/clerkbot/cmd"

func main() {
	cmd.Execute()
}
