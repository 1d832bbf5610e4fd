package main

import (
	"os"

	"github.com/jfcl7/jcblock/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
