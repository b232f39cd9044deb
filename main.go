package main

import "github.com/theirongolddev/subburn/cmd"

func main() {
	cmd.Execute()
}
