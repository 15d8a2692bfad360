// Command claodex routes messages between two coding-agent tmux panes.
// See internal/cli for the command surface.
package main

import "github.com/joshuavictorchen/claodex/internal/cli"

func main() {
	cli.Execute()
}
