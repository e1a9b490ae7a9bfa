package cmd

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/BioHazard786/Roomcast/internal/chat"
	"github.com/BioHazard786/Roomcast/internal/config"
	"github.com/BioHazard786/Roomcast/internal/media"
	"github.com/BioHazard786/Roomcast/internal/rtc"
	"github.com/BioHazard786/Roomcast/internal/ui"
	"github.com/BioHazard786/Roomcast/internal/utils"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/pion/webrtc/v4"
	"github.com/spf13/cobra"
)

var (
	flagWatchDomain   string
	flagWatchSTUN     string
	flagWatchTURN     string
	flagWatchTURNUser string
	flagWatchTURNPass string
	flagWatchRelay    bool
	flagWatchSave     bool
	flagWatchDir      string
)

var watchCmd = &cobra.Command{
	Use:     "watch <room-id|url>",
	Aliases: []string{"w"},
	Short:   "Watch a live broadcast",
	Long: `Join a room and receive its live broadcast. With --save the
incoming tracks are recorded to disk: video to IVF, audio to Ogg.

Examples:
  roomcast watch kitten-waffle-stardust-happy
  roomcast watch https://roomcast.qzz.io/r/kitten-waffle-stardust-happy
  roomcast watch kitten-waffle-stardust-happy --save --dir recordings`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		roomID, err := parseRoomInput(args[0])
		if err != nil {
			return err
		}
		return watchBroadcast(roomID)
	},
}

func watchBroadcast(roomID string) error {
	cfg, err := LoadConfig(config.Options{
		Domain:     flagWatchDomain,
		STUNServer: flagWatchSTUN,
		TURNServer: flagWatchTURN,
		TURNUser:   flagWatchTURNUser,
		TURNPass:   flagWatchTURNPass,
		ForceRelay: flagWatchRelay,
	})
	if err != nil {
		return err
	}

	fmt.Println()
	stopSpinner := ui.RunConnectionSpinner("Connecting to server...")
	ctx, err := NewConnectionContext(cfg)
	if err != nil {
		return err
	}
	defer ctx.Close()
	stopSpinner()

	room, err := joinRoom(ctx, roomID)
	if err != nil {
		return err
	}
	ctx.Room = room

	orch := rtc.NewOrchestrator(room.Self, ctx.Client, cfg)
	defer orch.Cleanup()

	board := ui.NewStatusBoard(ui.ModeWatch)
	board.SetRoomInfo(room.RoomID, cfg.GetRoomLink(room.RoomID))
	updates := board.GetUpdateChannel()

	chatRoom := chat.NewRoom(room.Self, func(msg chat.Message) {
		postUpdate(updates, ui.StatusUpdate{
			Type:    ui.UpdateChatLine,
			Message: formatChatLine(msg),
		})
	})

	saveDir := flagWatchDir
	if saveDir == "" {
		saveDir = "."
	}

	var recMu sync.Mutex
	var recorders []*media.Recorder

	orch.SetOnStateChange(func(peerID string, state rtc.ConnectionState) {
		postUpdate(updates, ui.StatusUpdate{
			Type:    ui.UpdatePeerState,
			PeerID:  peerID,
			Message: state.String(),
		})
	})
	orch.SetOnDataChannel(func(peerID string, dc *webrtc.DataChannel) {
		chatRoom.Attach(peerID, dc)
	})
	orch.SetOnRemoteTrack(func(peerID string, track *webrtc.TrackRemote, receiver *webrtc.RTPReceiver) {
		kind := track.Kind().String()
		postUpdate(updates, ui.StatusUpdate{
			Type:    ui.UpdateInfo,
			Message: fmt.Sprintf("Receiving %s", kind),
		})

		if !flagWatchSave {
			go drainTrack(track)
			return
		}

		name := fmt.Sprintf("roomcast-%s-%s", room.RoomID, kind)
		rec, err := media.NewRecorder(saveDir, name, track)
		if err != nil {
			slog.Error("cannot record track", "kind", kind, "err", err)
			go drainTrack(track)
			return
		}
		rec.Start()
		recMu.Lock()
		recorders = append(recorders, rec)
		recMu.Unlock()
	})

	stopPump := make(chan struct{})
	go watchEventPump(ctx, orch, chatRoom, updates, stopPump)

	startTime := time.Now()
	if _, err := tea.NewProgram(board).Run(); err != nil {
		return fmt.Errorf("run status board: %w", err)
	}
	close(stopPump)
	board.Close()
	orch.Cleanup()

	recMu.Lock()
	saved := make([]string, 0, len(recorders))
	for _, rec := range recorders {
		if err := rec.Close(); err != nil {
			slog.Warn("failed to finalize recording", "path", rec.Path(), "err", err)
			continue
		}
		saved = append(saved, rec.Path())
	}
	recMu.Unlock()

	fmt.Println()
	for _, path := range saved {
		ui.PrintSuccessf("Recording saved to %s", path)
	}
	ui.RenderBroadcastSummary(ui.BroadcastSummary{
		Status:   fmt.Sprintf("%s Left room", ui.IconSuccess),
		Room:     room.RoomID,
		Viewers:  1,
		Tracks:   len(saved),
		Duration: utils.FormatTimeDuration(time.Since(startTime)),
	})
	return nil
}

// watchEventPump routes signaling events into the orchestrator. The
// viewer never initiates; it answers the host's offers.
func watchEventPump(ctx *ConnectionContext, orch *rtc.Orchestrator, chatRoom *chat.Room, updates chan<- ui.StatusUpdate, stop <-chan struct{}) {
	for {
		select {
		case peer, ok := <-ctx.Handler.PeerJoined:
			if !ok {
				return
			}
			// Other viewers joining the room are no concern of ours.
			slog.Debug("peer joined room", "peer", peer.ID)

		case peerID, ok := <-ctx.Handler.PeerLeft:
			if !ok {
				return
			}
			orch.ClosePeer(peerID)
			chatRoom.Detach(peerID)
			postUpdate(updates, ui.StatusUpdate{Type: ui.UpdatePeerGone, PeerID: peerID})

		case sig, ok := <-ctx.Handler.Signal:
			if !ok {
				return
			}
			orch.HandleSignal(sig)

		case errMsg, ok := <-ctx.Handler.Error:
			if !ok {
				return
			}
			postUpdate(updates, ui.StatusUpdate{
				Type:  ui.UpdateFailed,
				Error: errors.New(errMsg),
			})

		case <-stop:
			return
		}
	}
}

// drainTrack keeps an unrecorded track's RTP flowing so the sender's
// congestion control sees a live receiver.
func drainTrack(track *webrtc.TrackRemote) {
	for {
		if _, _, err := track.ReadRTP(); err != nil {
			return
		}
	}
}

func init() {
	rootCmd.AddCommand(watchCmd)

	watchCmd.Flags().StringVar(&flagWatchDomain, "domain", "", "Custom domain")
	watchCmd.Flags().StringVarP(&flagWatchSTUN, "stun", "s", "", "Custom STUN server")
	watchCmd.Flags().StringVarP(&flagWatchTURN, "turn", "t", "", "Custom TURN server")
	watchCmd.Flags().StringVar(&flagWatchTURNUser, "turn-user", "", "TURN username")
	watchCmd.Flags().StringVar(&flagWatchTURNPass, "turn-pass", "", "TURN password")
	watchCmd.Flags().BoolVarP(&flagWatchRelay, "relay", "r", false, "Force relay mode")
	watchCmd.Flags().BoolVar(&flagWatchSave, "save", false, "Record the broadcast to disk")
	watchCmd.Flags().StringVar(&flagWatchDir, "dir", "", "Directory for recordings")
}
