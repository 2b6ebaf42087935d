package main

import (
	"usage-alerts/internal/cli"
)

func main() {
	cli.Execute()
}
