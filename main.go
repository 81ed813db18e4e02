package main

import "github.com/theirongolddev/timeq/cmd"

func main() {
	cmd.Execute()
}
