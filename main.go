package main

import (
	"os"

	"github.com/opensar/rescue/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
