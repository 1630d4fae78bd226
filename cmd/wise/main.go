package main

import (
	"log"

	"github.com/primo-luminous/wise-attitude-sub000/cmd/internal/app"
)

func main() {
	if err := app.Run(); err != nil {
		log.Fatal(err)
	}
}
