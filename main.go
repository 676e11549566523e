package main

import "github.com/flabwick/papyrus/cmd"

func main() {
	cmd.Execute()
}
