package main

import "github.com/deploymenttheory/go-bootimage/cmd"

func main() {
	cmd.Execute()
}
