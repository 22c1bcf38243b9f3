package main

import "github.com/cppla/practicehub/cmd"

func main() {
	cmd.Execute()
}
