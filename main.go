package main

import (
	"os"

	"github.com/makrcave/makrcave-access/app"
)

func main() {
	err := app.Execute()
	if err != nil {
		os.Exit(1)
	}
}
