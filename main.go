package main

import "github.com/KaramelBytes/tabclean-cli/cmd"

func main() {
	cmd.Execute()
}
