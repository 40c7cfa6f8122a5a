package main

import "github.com/funvibe/pybind/pkg/cli"

func main() {
	cli.Run()
}
