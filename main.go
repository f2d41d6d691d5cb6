package main

import "github.com/stevehiehn/maintain/cmd"

func main() {
	cmd.Execute()
}
