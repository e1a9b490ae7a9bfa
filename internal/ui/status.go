package ui

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/BioHazard786/Roomcast/internal/utils"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
)

// BoardMode selects the host or viewer layout.
type BoardMode int

const (
	ModeHost BoardMode = iota
	ModeWatch
)

// BoardState represents the lifecycle of a broadcast session.
type BoardState int

const (
	BoardConnecting BoardState = iota
	BoardWaiting
	BoardLive
	BoardDone
	BoardError
)

// chatTail is how many chat lines the board keeps on screen.
const chatTail = 6

// StatusUpdate is a message sent from external goroutines to update the UI.
type StatusUpdate struct {
	Type    StatusUpdateType
	PeerID  string
	Message string
	Error   error
}

type StatusUpdateType int

const (
	UpdatePeerState StatusUpdateType = iota
	UpdatePeerGone
	UpdateChatLine
	UpdateInfo
	UpdateDone
	UpdateFailed
)

// StatusBoard is the Bubble Tea model driving the live session screen:
// room banner, per-peer connection states, the chat tail, and elapsed
// time.
type StatusBoard struct {
	mode BoardMode

	state    BoardState
	stateMsg string

	roomID   string
	roomLink string

	// peers maps peer IDs to their last reported connection state.
	peers map[string]string
	chat  []string

	spinner   spinner.Model
	startTime time.Time

	width int

	mu sync.RWMutex

	updateChan chan StatusUpdate
	done       chan struct{}

	err error
}

// NewStatusBoard creates a board in the connecting state.
func NewStatusBoard(mode BoardMode) *StatusBoard {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = SpinnerStyle

	return &StatusBoard{
		mode:       mode,
		state:      BoardConnecting,
		stateMsg:   "Connecting to signaling server...",
		peers:      make(map[string]string),
		spinner:    s,
		startTime:  time.Now(),
		width:      80,
		updateChan: make(chan StatusUpdate, 100),
		done:       make(chan struct{}),
	}
}

// SetRoomInfo sets the room banner contents.
func (m *StatusBoard) SetRoomInfo(roomID, roomLink string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.roomID = roomID
	m.roomLink = roomLink
	if m.state == BoardConnecting {
		m.state = BoardWaiting
	}
}

// GetUpdateChannel returns the channel for sending updates.
func (m *StatusBoard) GetUpdateChannel() chan<- StatusUpdate {
	return m.updateChan
}

// Close releases the board; pending waitForUpdates commands return.
func (m *StatusBoard) Close() {
	close(m.done)
}

type boardTickMsg time.Time

func boardTick() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return boardTickMsg(t)
	})
}

func (m *StatusBoard) Init() tea.Cmd {
	return tea.Batch(
		m.spinner.Tick,
		m.waitForUpdates(),
		boardTick(),
	)
}

// waitForUpdates returns a command that listens for external updates.
func (m *StatusBoard) waitForUpdates() tea.Cmd {
	return func() tea.Msg {
		select {
		case update := <-m.updateChan:
			return update
		case <-m.done:
			return nil
		}
	}
}

func (m *StatusBoard) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)

	case boardTickMsg:
		if m.state != BoardDone && m.state != BoardError {
			cmds = append(cmds, boardTick())
		}

	case StatusUpdate:
		m.handleUpdate(msg)
		cmds = append(cmds, m.waitForUpdates())
	}

	return m, tea.Batch(cmds...)
}

func (m *StatusBoard) handleUpdate(update StatusUpdate) {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch update.Type {
	case UpdatePeerState:
		m.peers[update.PeerID] = update.Message
		if update.Message == "connected" {
			m.state = BoardLive
		}

	case UpdatePeerGone:
		delete(m.peers, update.PeerID)
		if len(m.peers) == 0 && m.state == BoardLive {
			m.state = BoardWaiting
		}

	case UpdateChatLine:
		m.chat = append(m.chat, update.Message)
		if len(m.chat) > chatTail {
			m.chat = m.chat[len(m.chat)-chatTail:]
		}

	case UpdateInfo:
		m.stateMsg = update.Message

	case UpdateDone:
		m.state = BoardDone

	case UpdateFailed:
		m.state = BoardError
		m.err = update.Error
	}
}

func (m *StatusBoard) View() string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var b strings.Builder

	var modeText string
	if m.mode == ModeHost {
		modeText = "Hosting"
	} else {
		modeText = "Watching"
	}
	header := HeaderStyle.Render(fmt.Sprintf("%s Roomcast - %s", IconBroadcast, modeText))
	b.WriteString(header + "\n\n")

	switch m.state {
	case BoardConnecting:
		b.WriteString(fmt.Sprintf("%s %s", m.spinner.View(), m.stateMsg))

	case BoardWaiting:
		b.WriteString(m.viewRoom())
		if m.mode == ModeHost {
			b.WriteString(fmt.Sprintf("%s Waiting for viewers to join...", m.spinner.View()))
		} else {
			b.WriteString(fmt.Sprintf("%s Waiting for the broadcast...", m.spinner.View()))
		}

	case BoardLive:
		b.WriteString(m.viewRoom())
		b.WriteString(m.viewPeers())
		b.WriteString(m.viewChat())
		b.WriteString(fmt.Sprintf("\n%s Live for %s",
			IconTime, utils.FormatTimeDuration(time.Since(m.startTime))))

	case BoardDone:
		b.WriteString(SuccessStyle.Render(fmt.Sprintf("%s Session ended", IconComplete)))

	case BoardError:
		b.WriteString(ErrorStyle.Render(fmt.Sprintf("%s Session failed", IconError)))
		if m.err != nil {
			b.WriteString("\n\n" + ErrorBoxStyle.Render(m.err.Error()))
		}
	}

	footer := m.viewFooter()
	b.WriteString("\n" + footer)

	return ContainerStyle.Render(b.String())
}

func (m *StatusBoard) viewRoom() string {
	if m.roomID == "" {
		return ""
	}
	if m.mode == ModeHost {
		return NewRoomInfo(m.roomID, m.roomLink).View() + "\n\n"
	}
	return fmt.Sprintf("%s Room: %s\n\n", IconRoom, BoldStyle.Render(m.roomID))
}

func (m *StatusBoard) viewPeers() string {
	if len(m.peers) == 0 {
		return ""
	}

	ids := make([]string, 0, len(m.peers))
	for id := range m.peers {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var b strings.Builder
	for _, id := range ids {
		state := m.peers[id]
		var icon string
		switch state {
		case "connected":
			icon = SuccessStyle.Render(IconSuccess)
		case "failed", "disconnected":
			icon = ErrorStyle.Render(IconError)
		default:
			icon = m.spinner.View()
		}
		b.WriteString(fmt.Sprintf("  %s %s %s %s\n",
			icon, IconPeer, utils.TruncateString(id, 12), MutedStyle.Render(state)))
	}
	b.WriteString("\n")
	return b.String()
}

func (m *StatusBoard) viewChat() string {
	if len(m.chat) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString(SubtitleStyle.Render(fmt.Sprintf("%s Chat", IconChat)) + "\n")
	for _, line := range m.chat {
		b.WriteString("  " + line + "\n")
	}
	return b.String()
}

func (m *StatusBoard) viewFooter() string {
	if m.state == BoardDone || m.state == BoardError {
		return MutedStyle.Render("Press 'q' to exit")
	}
	return MutedStyle.Render("Press 'q' or Ctrl+C to stop")
}
