package server

// Room is one broadcast room: a host plus any number of viewers, all
// sharing the same signaling bus. The first member in is the host.
type Room struct {
	// ID is the unique identifier for the room.
	ID string

	// HostID is the member who created the room.
	HostID string

	// Members maps peer IDs to their connections.
	Members map[string]*Client
}

func newRoom(id string) *Room {
	return &Room{
		ID:      id,
		Members: make(map[string]*Client),
	}
}

// peers lists the members other than exclude, for join payloads.
func (r *Room) peers(exclude string) []PeerInfo {
	var infos []PeerInfo
	for id, member := range r.Members {
		if id == exclude {
			continue
		}
		infos = append(infos, PeerInfo{ID: id, ClientType: member.ClientType})
	}
	return infos
}
