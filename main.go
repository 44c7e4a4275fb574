// The main package for the bookharvest executable.
package main

import (
	"github.com/openshelf/bookharvest/cmd"
)

func main() {
	cmd.Execute()
}
