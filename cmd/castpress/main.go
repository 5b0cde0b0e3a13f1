package main

import (
	"castpress/cmd/cmd"
)

func main() {
	cmd.Execute()
}
