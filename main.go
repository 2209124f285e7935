package main

import "github.com/monoforge/kit/cmd"

func main() {
	cmd.Execute()
}
