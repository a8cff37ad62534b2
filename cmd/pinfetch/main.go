package main

import "pinfetch/internal/cli"

func main() {
	cli.Execute()
}
