package main

import "github.com/vietddude/vaultflow/internal/cli"

func main() {
	cli.Execute()
}
