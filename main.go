package main

import "github.com/saultyevil/slashbot/cmd"

func main() {
	cmd.Execute()
}
