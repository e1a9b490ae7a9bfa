package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/BioHazard786/Roomcast/internal/chat"
	"github.com/BioHazard786/Roomcast/internal/config"
	"github.com/BioHazard786/Roomcast/internal/files"
	"github.com/BioHazard786/Roomcast/internal/media"
	"github.com/BioHazard786/Roomcast/internal/rtc"
	"github.com/BioHazard786/Roomcast/internal/ui"
	"github.com/BioHazard786/Roomcast/internal/utils"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/pion/webrtc/v4"
	"github.com/spf13/cobra"
)

var (
	flagDomain   string
	flagSTUN     string
	flagTURN     string
	flagTURNUser string
	flagTURNPass string
	flagRelay    bool
)

var hostCmd = &cobra.Command{
	Use:     "host <media-files...>",
	Aliases: []string{"h"},
	Short:   "Host a live broadcast of media files",
	Long: `Host a room and broadcast media files live to every viewer that joins.

IVF files (VP8/VP9/AV1) become the video track, Ogg files (Opus) the
audio track; at most one of each per broadcast.

Examples:
  roomcast host talk.ivf talk.ogg
  roomcast host --domain custom.example.com music.ogg
  roomcast host --relay talk.ivf`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return hostBroadcast(args)
	},
}

func hostBroadcast(filePaths []string) error {
	stopSpinner := ui.RunSpinner("Validating media files...")
	defer stopSpinner()
	infos, err := files.ValidateMedia(filePaths)
	if err != nil {
		return err
	}
	stopSpinner()

	displayMediaTable(infos)

	cfg, err := LoadConfig(config.Options{
		Domain:     flagDomain,
		STUNServer: flagSTUN,
		TURNServer: flagTURN,
		TURNUser:   flagTURNUser,
		TURNPass:   flagTURNPass,
		ForceRelay: flagRelay,
	})
	if err != nil {
		return err
	}

	// Open the sources before touching the network so a bad file fails fast.
	stream := media.NewStream("broadcast")
	sources := make([]*media.Source, 0, len(infos))
	for _, info := range infos {
		src, err := media.OpenFile(info.Path)
		if err != nil {
			return err
		}
		if err := stream.AddTrack(src.Track()); err != nil {
			return err
		}
		sources = append(sources, src)
	}

	fmt.Println()
	stopSpinner = ui.RunConnectionSpinner("Connecting to server...")
	defer stopSpinner()
	ctx, err := NewConnectionContext(cfg)
	if err != nil {
		return err
	}
	defer ctx.Close()
	stopSpinner()

	room, err := createRoom(ctx)
	if err != nil {
		return err
	}
	ctx.Room = room

	orch := rtc.NewOrchestrator(room.Self, ctx.Client, cfg)
	defer orch.Cleanup()
	orch.SetLocalStream(stream)

	board := ui.NewStatusBoard(ui.ModeHost)
	board.SetRoomInfo(room.RoomID, cfg.GetRoomLink(room.RoomID))
	updates := board.GetUpdateChannel()

	chatRoom := chat.NewRoom(room.Self, func(msg chat.Message) {
		postUpdate(updates, ui.StatusUpdate{
			Type:    ui.UpdateChatLine,
			Message: formatChatLine(msg),
		})
	})

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

	var peakViewers atomic.Int32
	stopPump := make(chan struct{})
	go hostEventPump(ctx, orch, chatRoom, updates, &peakViewers, stopPump)

	// Playback starts immediately; viewers join the live stream wherever
	// it currently is.
	streamCtx, cancelStream := context.WithCancel(context.Background())
	defer cancelStream()
	startPlayback(streamCtx, sources, chatRoom, updates)

	startTime := time.Now()
	if _, err := tea.NewProgram(board).Run(); err != nil {
		return fmt.Errorf("run status board: %w", err)
	}
	close(stopPump)
	cancelStream()
	board.Close()
	orch.Cleanup()

	fmt.Println()
	ui.RenderBroadcastSummary(ui.BroadcastSummary{
		Status:   fmt.Sprintf("%s Ended", ui.IconSuccess),
		Room:     room.RoomID,
		Viewers:  int(peakViewers.Load()),
		Tracks:   len(sources),
		Duration: utils.FormatTimeDuration(time.Since(startTime)),
	})
	return nil
}

// hostEventPump routes signaling events into the orchestrator: every
// joining viewer gets an offer, leaving viewers get their session torn
// down.
func hostEventPump(ctx *ConnectionContext, orch *rtc.Orchestrator, chatRoom *chat.Room, updates chan<- ui.StatusUpdate, peak *atomic.Int32, stop <-chan struct{}) {
	for {
		select {
		case peer, ok := <-ctx.Handler.PeerJoined:
			if !ok {
				return
			}
			postUpdate(updates, ui.StatusUpdate{
				Type:    ui.UpdatePeerState,
				PeerID:  peer.ID,
				Message: "connecting",
			})
			if err := orch.CreateOffer(peer.ID); err != nil {
				slog.Error("failed to offer to viewer", "peer", peer.ID, "err", err)
				continue
			}
			if n := int32(orch.SessionCount()); n > peak.Load() {
				peak.Store(n)
			}

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

// startPlayback runs every source at native pacing and announces start
// and end over chat.
func startPlayback(ctx context.Context, sources []*media.Source, chatRoom *chat.Room, updates chan<- ui.StatusUpdate) {
	var wg sync.WaitGroup
	for _, src := range sources {
		wg.Add(1)
		go func(s *media.Source) {
			defer wg.Done()
			if err := s.Stream(ctx); err != nil && !errors.Is(err, context.Canceled) {
				slog.Warn("playback stopped", "err", err)
			}
		}(src)
	}

	chatRoom.Send("broadcast started")

	go func() {
		wg.Wait()
		if ctx.Err() != nil {
			return
		}
		chatRoom.Send("broadcast finished")
		postUpdate(updates, ui.StatusUpdate{
			Type:    ui.UpdateInfo,
			Message: "Playback finished, room stays open",
		})
	}()
}

func displayMediaTable(infos []files.MediaInfo) {
	items := make([]ui.MediaTableItem, len(infos))
	for i, f := range infos {
		items[i] = ui.MediaTableItem{Index: i + 1, Name: f.Name, Size: f.Size, Kind: f.Kind}
	}
	fmt.Println()
	ui.RenderMediaTable(items)
}

func formatChatLine(msg chat.Message) string {
	return fmt.Sprintf("[%s] %s: %s",
		msg.SentAt.Format("15:04:05"), utils.TruncateString(msg.From, 8), msg.Text)
}

// postUpdate never blocks: once the board is gone, updates are dropped.
func postUpdate(ch chan<- ui.StatusUpdate, update ui.StatusUpdate) {
	select {
	case ch <- update:
	default:
	}
}

func init() {
	rootCmd.AddCommand(hostCmd)

	hostCmd.Flags().StringVarP(&flagDomain, "domain", "d", "", "Custom domain")
	hostCmd.Flags().StringVarP(&flagSTUN, "stun", "s", "", "Custom STUN server")
	hostCmd.Flags().StringVarP(&flagTURN, "turn", "t", "", "Custom TURN server")
	hostCmd.Flags().StringVarP(&flagTURNUser, "turn-user", "u", "", "TURN username")
	hostCmd.Flags().StringVarP(&flagTURNPass, "turn-pass", "p", "", "TURN password")
	hostCmd.Flags().BoolVarP(&flagRelay, "relay", "r", false, "Force relay mode")
}
