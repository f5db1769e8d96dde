package main

import "github.com/Tiliavir/timeex/cmd"

func main() {
	cmd.Execute()
}
