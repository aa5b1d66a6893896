// meshctl is the ConnectRPC CLI client for meshcored.
package main

import "github.com/atomozero/meshcore-go/cmd/meshctl/commands"

func main() {
	commands.Execute()
}
