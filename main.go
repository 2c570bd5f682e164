package main

import "github.com/nextlevelbuilder/cairnkernel/cmd"

func main() {
	cmd.Execute()
}
