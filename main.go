package main

import "halmon/cmd"

func main() {
	cmd.Execute()
}
