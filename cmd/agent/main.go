package main

import "github.com/fieldsync/agent/internal/cli"

func main() {
	cli.Execute()
}
