package main

import "github.com/forPelevin/fadecut/internal/cli"

func main() {
	cli.Main()
}
