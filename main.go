package main

import "github.com/tkv-io/tkv/cmd"

func main() {
	cmd.Execute()
}
