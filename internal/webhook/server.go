// Package webhook exposes the HTTP surface: the WhatsApp message webhook,
// a health endpoint, and an API-key protected memory inspection endpoint.
package webhook

import (
	"context"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/ecobot-id/ecobot/internal/agent"
	"github.com/ecobot-id/ecobot/internal/config"
)

// inboundMessage is the webhook payload shape. Media carries a base64 image
// when the user sent a photo instead of text.
type inboundMessage struct {
	From  string        `json:"from"`
	Body  string        `json:"body"`
	Media *inboundMedia `json:"media,omitempty"`
}

type inboundMedia struct {
	Data     string `json:"data"`
	MimeType string `json:"mimetype"`
}

// outboundReply is the webhook response shape.
type outboundReply struct {
	Status string `json:"status"`
	Reply  string `json:"reply"`
}

// Server hosts the webhook endpoints over echo.
type Server struct {
	echo   *echo.Echo
	agent  *agent.Agent
	logger *slog.Logger
	addr   string
	apiKey string
}

// NewServer wires the routes and middleware. The memory endpoint stays
// unreachable until an API key is configured.
func NewServer(cfg config.ServerConfig, bot *agent.Agent, logger *slog.Logger) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	srvLogger := logger.With("component", "webhook")

	e.Use(middleware.Recover())
	e.Use(middleware.TimeoutWithConfig(middleware.TimeoutConfig{
		Timeout: cfg.RequestTimeout,
	}))
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus: true,
		LogURI:    true,
		LogMethod: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			srvLogger.Info("Request handled",
				"method", v.Method, "uri", v.URI, "status", v.Status)
			return nil
		},
	}))

	s := &Server{
		echo:   e,
		agent:  bot,
		logger: srvLogger,
		addr:   cfg.ListenAddr,
		apiKey: cfg.APIKey,
	}

	e.POST("/webhook", s.handleWebhook)
	e.GET("/health", s.handleHealth)
	e.GET("/api/memory/:phone", s.handleMemoryStats)

	return s
}

// Start serves until the listener fails or Shutdown is called.
func (s *Server) Start() error {
	s.logger.Info("Webhook server starting", "addr", s.addr)
	if err := s.echo.Start(s.addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests and stops the listener.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

func (s *Server) handleWebhook(c echo.Context) error {
	var msg inboundMessage
	if err := c.Bind(&msg); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed payload")
	}

	phone := NormalizePhone(msg.From)
	if phone == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "missing sender")
	}

	ctx := c.Request().Context()

	if msg.Media != nil && msg.Media.Data != "" {
		image, err := base64.StdEncoding.DecodeString(msg.Media.Data)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "malformed media data")
		}
		result := s.agent.ProcessImageMessage(ctx, phone, image, agent.DefaultMode)
		return c.JSON(http.StatusOK, outboundReply{Status: result.Status, Reply: result.Reply})
	}

	if modeName, ok := parseModeCommand(msg.Body); ok {
		reply := s.agent.SwitchMode(ctx, phone, modeName)
		if guidance, ok := modeGuidance[modeName]; ok {
			reply += "\n\n" + guidance
		}
		return c.JSON(http.StatusOK, outboundReply{Status: agent.StatusSuccess, Reply: reply})
	}

	result := s.agent.ProcessMessage(ctx, phone, msg.Body, agent.DefaultMode)
	return c.JSON(http.StatusOK, outboundReply{Status: result.Status, Reply: result.Reply})
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleMemoryStats(c echo.Context) error {
	if s.apiKey == "" {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "memory endpoint disabled")
	}
	provided := c.Request().Header.Get("X-API-Key")
	if subtle.ConstantTimeCompare([]byte(provided), []byte(s.apiKey)) != 1 {
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid api key")
	}

	phone := NormalizePhone(c.Param("phone"))
	if phone == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "missing phone")
	}

	stats := s.agent.GetMemoryStats(c.Request().Context(), phone)
	return c.JSON(http.StatusOK, stats)
}
