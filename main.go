package main

import "focus-billing/internal/cli"

func main() {
	cli.Execute()
}
