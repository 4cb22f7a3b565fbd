// Command glossy runs the assistant's chat pipeline and search catalog from
// a terminal, and checks a running server's feature health.
package main

import (
	"fmt"
	"os"
)

func main() {
	app := NewApp()
	if err := app.CreateRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
