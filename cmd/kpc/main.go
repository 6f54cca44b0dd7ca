package main

import "github.com/oshokin/keypad-controller/cmd/kpc/cmd"

func main() {
	cmd.Execute()
}
