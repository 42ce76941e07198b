package main

import (
	"os"

	"horse.fit/lineup/internal/app"
)

func main() {
	os.Exit(app.Run(os.Args[1:]))
}
