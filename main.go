package main

import "github.com/passrate/go-pass-metrics/cmd"

func main() {
	cmd.Execute()
}
