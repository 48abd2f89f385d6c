package main

import "github.com/artemshloyda/phototagger/internal/cli"

func main() {
	cli.Execute()
}
