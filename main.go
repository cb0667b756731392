package main

import "github.com/nssports/sportsbook-engine/cmd"

func main() {
	cmd.Execute()
}
