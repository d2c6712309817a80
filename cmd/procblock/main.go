package main

import "github.com/aalvaropc/procblock/internal/cli"

func main() {
	cli.Execute()
}
