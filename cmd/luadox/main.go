package main

import "github.com/mvp-joe/luadox/internal/cli"

func main() {
	cli.Execute()
}
