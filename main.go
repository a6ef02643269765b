package main

import "github.com/cwel/gsmd/cmd"

func main() {
	cmd.Execute()
}
