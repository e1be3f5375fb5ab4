package main

import (
	"os"

	"github.com/li-boxuan/community/cmd/community/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
