package main

import "github.com/markb/plcgate/cmd"

func main() {
	cmd.Execute()
}
