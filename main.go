package main

import (
	"github.com/foomo/gitdb/cmd"
)

func main() {
	cmd.Execute()
}
