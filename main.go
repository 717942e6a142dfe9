package main

import "github.com/crewpix/crewpix/cmd"

func main() {
	cmd.Execute()
}
