package main

import "github.com/oshokin/catpoint/cmd/catpointctl/cmd"

func main() {
	cmd.Execute()
}
