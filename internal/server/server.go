// Package server wires the relay process together: config, logging, the
// in-process bus, the WebSocket bridge and the HTTP routes.
package server

import (
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/etra-web/relay/internal/config"
	"github.com/etra-web/relay/internal/logging"
	"github.com/etra-web/relay/internal/pubsub"
	"github.com/etra-web/relay/internal/relay"
	"github.com/etra-web/relay/internal/websocket"
)

// Server holds the dependencies for the relay process.
type Server struct {
	E      *echo.Echo
	Cfg    *config.Config
	Bus    *pubsub.GoChannelBridge
	Bridge *websocket.Bridge

	relayHandler *relay.Handler
}

// New creates a fully wired Server instance.
func New() *Server {
	logging.New()
	cfg := config.New()

	bus := pubsub.NewGoChannelBridge()
	bridge := websocket.NewBridge(bus)
	relayHandler := relay.NewHandler(bus, bridge)

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(middleware.CORS())

	return &Server{
		E:            e,
		Cfg:          cfg,
		Bus:          bus,
		Bridge:       bridge,
		relayHandler: relayHandler,
	}
}

// RegisterRoutes sets up all the relay routes.
func (s *Server) RegisterRoutes() {
	s.E.GET("/ws", s.Bridge.Handler())

	s.E.POST("/webhook/chat-response", s.relayHandler.ChatResponsePost)
	s.E.POST("/webhook/mixed-content", s.relayHandler.MixedContentPost)
	s.E.POST("/webhook/base64-content", s.relayHandler.Base64ContentPost)

	s.E.GET("/health", s.relayHandler.HealthGet)
	s.E.POST("/test", s.relayHandler.TestPost)
}
