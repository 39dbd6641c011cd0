package main

import (
	cmd "github.com/rohmanhakim/page-archiver/internal/cli"
)

func main() {
	cmd.Execute()
}
