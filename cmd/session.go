package cmd

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/BioHazard786/Roomcast/internal/config"
	"github.com/BioHazard786/Roomcast/internal/signaling"
	"github.com/BioHazard786/Roomcast/internal/ui"
)

// ConnectionContext bundles the signaling client and handler a command
// runs on top of.
type ConnectionContext struct {
	Client  *signaling.Client
	Handler *signaling.Handler
	Config  *config.Config
	Room    *signaling.RoomEvent
}

func NewConnectionContext(cfg *config.Config) (*ConnectionContext, error) {
	client := signaling.NewClient(cfg.WebSocketURL)
	if err := client.Connect(); err != nil {
		return nil, fmt.Errorf("connect to server: %w", err)
	}

	handler := signaling.NewHandler(client)
	go handler.Start()

	return &ConnectionContext{
		Client:  client,
		Handler: handler,
		Config:  cfg,
	}, nil
}

func (c *ConnectionContext) Close() {
	if c.Handler != nil {
		c.Handler.Close()
	}
	if c.Client != nil {
		c.Client.Close()
	}
}

func LoadConfig(opts config.Options) (*config.Config, error) {
	cfg, err := config.Load(opts)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	if cfg.ForceRelay && cfg.GetTURNServers() == nil {
		return nil, fmt.Errorf("cannot force relay mode without TURN server configured")
	}

	return cfg, nil
}

func createRoom(ctx *ConnectionContext) (*signaling.RoomEvent, error) {
	err := ctx.Client.Send(&signaling.Message{
		Type:       signaling.MessageTypeCreateRoom,
		ClientType: "cli",
	})
	if err != nil {
		return nil, fmt.Errorf("create room: %w", err)
	}

	select {
	case room := <-ctx.Handler.RoomCreated:
		return room, nil
	case errMsg := <-ctx.Handler.Error:
		return nil, fmt.Errorf("create room: %s", errMsg)
	}
}

func joinRoom(ctx *ConnectionContext, roomID string) (*signaling.RoomEvent, error) {
	err := ctx.Client.Send(&signaling.Message{
		Type:       signaling.MessageTypeJoinRoom,
		RoomID:     roomID,
		ClientType: "cli",
	})
	if err != nil {
		return nil, fmt.Errorf("join room: %w", err)
	}

	select {
	case room := <-ctx.Handler.JoinSuccess:
		return room, nil
	case errMsg := <-ctx.Handler.Error:
		return nil, fmt.Errorf("join room: %s", errMsg)
	}
}

func parseRoomInput(input string) (string, error) {
	if input == "" {
		return "", fmt.Errorf("room ID cannot be empty")
	}

	if strings.Contains(input, "://") || strings.Contains(input, ".") {
		roomID, err := extractRoomIDFromURL(input)
		if err != nil {
			return "", err
		}
		ui.PrintSuccessf("Extracted room ID: %s", roomID)
		return roomID, nil
	}

	return input, nil
}

func extractRoomIDFromURL(urlStr string) (string, error) {
	parsedURL, err := url.Parse(urlStr)
	if err != nil {
		return "", fmt.Errorf("parse URL: %w", err)
	}

	path := strings.TrimSuffix(parsedURL.Path, "/")
	parts := strings.Split(path, "/")

	for i, part := range parts {
		if part == "r" && i+1 < len(parts) && parts[i+1] != "" {
			return parts[i+1], nil
		}
	}

	return "", fmt.Errorf("could not extract room ID from URL: %s", urlStr)
}
