package main

import "github.com/marcodd23/go-export-ledger/internal/cmd"

func main() {
	cmd.Execute()
}
