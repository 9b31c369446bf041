// Command auditctl prints version audit reports from the command line.
package main

import "github.com/rpattn/versionaudit/internal/cli"

func main() {
	cli.Execute()
}
