package main

import (
	"github.com/etra-web/relay/internal/server"
)

func main() {
	// Create a new relay instance.
	s := server.New()

	// Register all routes.
	s.RegisterRoutes()

	// Run until signaled.
	s.Start()
}
