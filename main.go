package main

import "github.com/akashicode/quoteshelf/cmd"

func main() {
	cmd.Execute()
}
