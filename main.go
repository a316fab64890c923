package main

import "github.com/deliveryeta/registryops/pkg/cmd"

func main() {
	cmd.Execute()
}
