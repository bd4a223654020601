package main

import (
	_ "time/tzdata"
	"wisecal/cmd"
)

func main() {
	cmd.Run()
}
