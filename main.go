package main

import "feed-merger/cmd"

func main() {
	cmd.Execute()
}
