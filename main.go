package main

import (
	"log"

	"yashubustudio/surveyx/internal/app"
)

func main() {
	if err := app.Run(); err != nil {
		log.Fatalf("surveyx: %v", err)
	}
}
