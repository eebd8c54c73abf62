package main

import "github.com/openclaw/control-room/cmd"

func main() {
	cmd.Execute()
}
