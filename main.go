package main

import "otakuwave/cmd"

func main() {
	cmd.Execute()
}
