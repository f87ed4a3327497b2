package main

import "github.com/user/secsweep/cmd"

func main() {
	cmd.Execute()
}
