package main

import (
	"os"

	"bork/cmd"
)

func main() {
	os.Exit(cmd.Execute())
}
