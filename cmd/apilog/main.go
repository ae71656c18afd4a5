package main

import (
	"os"

	"github.com/daimoniac/apilog/cmd/apilog/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
