package main

import "github.com/unkn0wn-root/stowage/cmd/stowage/cmd"

func main() {
	cmd.Execute()
}
