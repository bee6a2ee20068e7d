package main

import (
	"os"

	"github.com/go-secadmin/go-secadmin/app"
)

func main() {
	err := app.Execute()
	if err != nil {
		os.Exit(1)
	}
}
