package main

import "github.com/osstelecom/topoweak/cmd/topoweak/commands"

func main() {
	commands.Execute()
}
