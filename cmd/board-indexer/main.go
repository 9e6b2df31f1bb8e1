package main

import "github.com/dumfing/board-index-publisher/cmd/board-indexer/cmd"

func main() {
	cmd.Execute()
}
