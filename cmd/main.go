package main

import (
	"os"

	"github.com/nuevogironmmm-cell/SAPINECIAL-BACKEND/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
