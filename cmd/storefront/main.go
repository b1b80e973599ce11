package main

import "github.com/nikixstore/storefront/cmd/storefront/commands"

func main() {
	commands.Execute()
}
