package main

import (
	"costsync/internal/cmd"
)

func main() {
	cmd.Execute()
}
