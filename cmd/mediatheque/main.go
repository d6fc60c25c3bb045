package main

import (
	"github.com/veldt-labs/mediatheque/internal/adapters/driving/cli"
)

func main() {
	cli.Execute()
}
