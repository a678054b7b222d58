package main

import "vanity-sol/cmd"

func main() {
	cmd.Execute()
}
