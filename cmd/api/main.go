package main

import "github.com/flicky/go-storefront-api/cmd/api/commands"

func main() {
	commands.Execute()
}
