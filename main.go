package main

import (
	"os"

	"zgit/src/cli"
)

func main() {
	os.Exit(cli.Execute())
}
