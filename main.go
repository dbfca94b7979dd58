package main

import "github.com/soocke/pixel-overlay-go/cmd"

func main() {
	cmd.Execute(NewLogger)
}
