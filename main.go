package main

import "github.com/volako-app/volako/cmd"

func main() {
	cmd.Execute()
}
