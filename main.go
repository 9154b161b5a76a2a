package main

import "mcpcalc/cmd"

func main() {
	cmd.Execute()
}
