package main

import "github.com/etra-web/relay/cmd/relayctl/cmd"

func main() {
	cmd.Execute()
}
