package main

import "mergesync/cmd"

func main() {
	cmd.Execute()
}
