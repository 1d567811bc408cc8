package main

import "github.com/teemow/outlook-mcp/cmd"

// version is overridden at release time via -ldflags "-X main.version=...".
var version = "dev"

func main() {
	cmd.SetVersion(version)
	cmd.Execute()
}
