package shared

// Room Backend 的操作名（RPC pattern）
const (
	RoomCreate            = "room.create"
	RoomListRooms         = "room.list_rooms"
	RoomGetRoom           = "room.get_room"
	RoomDeleteRoom        = "room.delete_room"
	RoomCreateToken       = "room.create_token"
	RoomListParticipants  = "room.list_participants"
	RoomRemoveParticipant = "room.remove_participant"
	RoomMuteParticipant   = "room.mute_participant"
)
