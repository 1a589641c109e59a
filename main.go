package main

import "retailcopilot/cmd"

func main() {
	cmd.Execute()
}
