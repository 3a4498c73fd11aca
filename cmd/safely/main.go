package main

import "github.com/vietddude/safely/internal/cli"

func main() {
	cli.Execute()
}
