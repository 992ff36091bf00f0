package main

import "pubsub-core/internal/client/cmd"

func main() {
	cmd.Execute()
}
