package main

import (
	"os"

	"github.com/docuchunk/docuchunk/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
