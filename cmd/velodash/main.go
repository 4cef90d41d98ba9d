package main

import (
	"log"

	"github.com/velodash/velodash/internal/app"
)

func main() {
	if err := app.New().Run(); err != nil {
		log.Fatalf("❌ velodash failed to start: %v", err)
	}
}
