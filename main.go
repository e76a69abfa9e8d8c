package main

import (
	"mediatag/cmd"
)

func main() {
	cmd.Execute()
}
