package main

import (
	"os"

	"github.com/yungbote/slideforge-backend/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
