package main

import "HKQuant/internal/cli"

func main() {
	cli.Run()
}
