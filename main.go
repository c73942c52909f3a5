package main

import (
	"os"

	"github.com/gsclens/gsclens/internal/cli"
)

func main() {
	cli.InitCLI()
	os.Exit(cli.ExecuteWithErrorCode(os.Args[1:]))
}
