package main

import "github.com/vitalpages/server/cmd/server/cmd"

func main() {
	cmd.Execute()
}
