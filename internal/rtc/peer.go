package rtc

import (
	"github.com/BioHazard786/Roomcast/internal/config"
	"github.com/BioHazard786/Roomcast/internal/logging"
	"github.com/BioHazard786/Roomcast/internal/utils"
	"github.com/pion/webrtc/v4"
)

// NewPeerConnection centralizes ICE server configuration and routes the
// pion stack's logging through slog.
func NewPeerConnection(cfg *config.Config) (*webrtc.PeerConnection, error) {
	var iceServers []webrtc.ICEServer

	if cfg.STUNServer != "" {
		iceServers = append(iceServers, webrtc.ICEServer{URLs: cfg.GetSTUNServers()})
	}

	turnServers := cfg.GetTURNServers()
	if turnServers != nil {
		username, password := cfg.GetTURNCredentials()
		iceServers = append(iceServers, webrtc.ICEServer{
			URLs:       turnServers,
			Username:   username,
			Credential: password,
		})
	}

	policy := webrtc.ICETransportPolicyAll
	if turnServers != nil && (cfg.ForceRelay || utils.ShouldForceRelay()) {
		policy = webrtc.ICETransportPolicyRelay
	}

	settings := webrtc.SettingEngine{}
	settings.LoggerFactory = &logging.PionFactory{}
	api := webrtc.NewAPI(webrtc.WithSettingEngine(settings))

	pc, err := api.NewPeerConnection(webrtc.Configuration{
		ICEServers:         iceServers,
		ICETransportPolicy: policy,
	})
	if err != nil {
		return nil, newError("create peer connection", "", err)
	}
	return pc, nil
}
