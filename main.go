package main

import "ecoleta-cli/cmd"

var (
	version = "dev"
	commit  = "none"
)

func main() {
	cmd.Main(cmd.BuildInfo{Version: version, Commit: commit})
}
