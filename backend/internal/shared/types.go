package shared

// 网关和 livekit-service 共用的 DTO（跨 RPC 边界的载荷/响应形状）

type Room struct {
	SID             string `json:"sid"`
	Name            string `json:"name"`
	EmptyTimeout    uint32 `json:"emptyTimeout"`
	MaxParticipants uint32 `json:"maxParticipants"`
	Metadata        string `json:"metadata,omitempty"`
	NumParticipants uint32 `json:"numParticipants"`
	CreationTime    int64  `json:"creationTime"`
}

type Participant struct {
	SID      string `json:"sid"`
	Identity string `json:"identity"`
	Name     string `json:"name,omitempty"`
	State    string `json:"state"`
	Metadata string `json:"metadata,omitempty"`
	JoinedAt int64  `json:"joinedAt"`
	// trackSource -> muted
	MutedTracks map[string]bool `json:"mutedTracks,omitempty"`
}

type CreateRoomRequest struct {
	Name            string `json:"name"`
	EmptyTimeout    uint32 `json:"emptyTimeout,omitempty"`
	MaxParticipants uint32 `json:"maxParticipants,omitempty"`
	Metadata        string `json:"metadata,omitempty"`
}

type ListRoomsRequest struct {
	Names []string `json:"names,omitempty"`
}

type GetRoomRequest struct {
	Name string `json:"name"`
}

type DeleteRoomRequest struct {
	Name string `json:"name"`
}

// CreateTokenRequest：加入房间即签发 token。
// CanPublish / CanSubscribe / CanPublishData 默认 true（网关侧补默认值）。
type CreateTokenRequest struct {
	RoomName       string `json:"roomName"`
	Identity       string `json:"identity"`
	Name           string `json:"name,omitempty"`
	Metadata       string `json:"metadata,omitempty"`
	CanPublish     bool   `json:"canPublish"`
	CanSubscribe   bool   `json:"canSubscribe"`
	CanPublishData bool   `json:"canPublishData"`
}

type CreateTokenResult struct {
	Token    string `json:"token"`
	WsURL    string `json:"wsUrl"`
	RoomName string `json:"roomName"`
	Identity string `json:"identity"`
}

type ListParticipantsRequest struct {
	RoomName string `json:"roomName"`
}

type RemoveParticipantRequest struct {
	RoomName string `json:"roomName"`
	Identity string `json:"identity"`
}

type MuteParticipantRequest struct {
	RoomName    string `json:"roomName"`
	Identity    string `json:"identity"`
	TrackSource string `json:"trackSource"`
	Muted       bool   `json:"muted"`
}
