// The main package for the planner executable.
package main

import (
	"github.com/ozayn/planner/cmd"
)

func main() {
	cmd.Execute()
}
