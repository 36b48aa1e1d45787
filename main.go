// The main package for the webshepherd executable.
package main

import (
	"github.com/webshepherd/webshepherd/cmd"
)

// main defers all execution to the Cobra CLI library.
func main() {
	cmd.Execute()
}
