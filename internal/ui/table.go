package ui

import (
	"fmt"

	"github.com/BioHazard786/Roomcast/internal/utils"
	"github.com/charmbracelet/lipgloss"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// MediaTableItem is one media file row.
type MediaTableItem struct {
	Index int
	Name  string
	Size  int64
	Kind  string
}

// MediaTableView renders the media files selected for a broadcast.
func MediaTableView(items []MediaTableItem) string {
	if len(items) == 0 {
		return MutedStyle.Render("No media files")
	}

	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.Style().Color.Header = text.Colors{text.FgCyan, text.Bold}
	t.AppendHeader(table.Row{"#", "Name", "Size", "Kind"})
	for _, item := range items {
		icon := IconAudio
		if item.Kind == "video" {
			icon = IconVideo
		}
		t.AppendRow(table.Row{
			item.Index,
			utils.TruncateString(item.Name, 50),
			utils.FormatSize(item.Size),
			fmt.Sprintf("%s %s", icon, item.Kind),
		})
	}
	return t.Render()
}

// RenderMediaTable outputs the media table directly to stdout.
func RenderMediaTable(items []MediaTableItem) {
	fmt.Println(MediaTableView(items))
}

// BroadcastSummary holds the end-of-broadcast stats.
type BroadcastSummary struct {
	Status   string
	Room     string
	Viewers  int
	Tracks   int
	Duration string
}

// BroadcastSummaryView renders the final stats table shown when a
// broadcast or watch session ends.
func BroadcastSummaryView(summary BroadcastSummary) string {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.Style().Color.Header = text.Colors{text.FgCyan, text.Bold}
	t.AppendHeader(table.Row{"Metric", "Value"})
	t.AppendRows([]table.Row{
		{"Status", summary.Status},
		{"Room", summary.Room},
		{"Peak Viewers", summary.Viewers},
		{"Tracks", summary.Tracks},
		{"Duration", summary.Duration},
	})
	return t.Render()
}

func RenderBroadcastSummary(summary BroadcastSummary) {
	fmt.Println(BroadcastSummaryView(summary))
}

// RoomInfo is the banner shown to the host after the room is created.
type RoomInfo struct {
	RoomID   string
	RoomLink string
}

func NewRoomInfo(roomID, roomLink string) *RoomInfo {
	return &RoomInfo{
		RoomID:   roomID,
		RoomLink: roomLink,
	}
}

func (r *RoomInfo) View() string {
	boxStyle := lipgloss.NewStyle().
		Border(lipgloss.DoubleBorder()).
		BorderForeground(Success).
		Padding(1, 2)

	content := fmt.Sprintf("%s Room Created!\n\n%s Room ID:    %s\n%s Room Link:  %s",
		IconSuccess,
		IconCopy, BoldStyle.Foreground(Primary).Render(r.RoomID),
		IconWeb, MutedStyle.Render(r.RoomLink),
	)

	return boxStyle.Render(content)
}
