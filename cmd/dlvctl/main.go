package main

import "dlvery/internal/cli"

func main() {
	cli.Execute()
}
