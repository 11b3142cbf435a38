package main

import "github.com/dyike/BondCortex/internal/cli"

func main() {
	cli.Run()
}
