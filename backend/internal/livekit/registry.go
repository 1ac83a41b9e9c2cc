package livekit

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/JayStevency/livekit-msa-server/backend/internal/shared"
)

// Registry：房间/参与者的权威状态（livekit-service 进程内）。
// 网关永远不直接读这里——只能通过队列上的 RPC。
type Registry struct {
	mu    sync.Mutex
	rooms map[string]*roomState
}

type roomState struct {
	room         shared.Room
	participants map[string]*shared.Participant
}

func NewRegistry() *Registry {
	return &Registry{rooms: make(map[string]*roomState)}
}

func newSID(prefix string) string {
	var b [7]byte
	_, _ = rand.Read(b[:])
	return prefix + hex.EncodeToString(b[:])
}

const (
	defaultEmptyTimeout    = 300
	defaultMaxParticipants = 10
)

// CreateRoom：已存在时返回现有房间（对齐 LiveKit 的幂等语义）
func (r *Registry) CreateRoom(name string, emptyTimeout, maxParticipants uint32, metadata string) shared.Room {
	r.mu.Lock()
	defer r.mu.Unlock()
	if st, ok := r.rooms[name]; ok {
		return r.snapshot(st)
	}
	if emptyTimeout == 0 {
		emptyTimeout = defaultEmptyTimeout
	}
	if maxParticipants == 0 {
		maxParticipants = defaultMaxParticipants
	}
	st := &roomState{
		room: shared.Room{
			SID:             newSID("RM_"),
			Name:            name,
			EmptyTimeout:    emptyTimeout,
			MaxParticipants: maxParticipants,
			Metadata:        metadata,
			CreationTime:    time.Now().Unix(),
		},
		participants: make(map[string]*shared.Participant),
	}
	r.rooms[name] = st
	return r.snapshot(st)
}

func (r *Registry) DeleteRoom(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rooms[name]; !ok {
		return fmt.Errorf("room %s not found", name)
	}
	delete(r.rooms, name)
	return nil
}

// ListRooms：names 为空列出全部，否则按名字过滤
func (r *Registry) ListRooms(names []string) []shared.Room {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []shared.Room
	if len(names) == 0 {
		for _, st := range r.rooms {
			out = append(out, r.snapshot(st))
		}
	} else {
		for _, name := range names {
			if st, ok := r.rooms[name]; ok {
				out = append(out, r.snapshot(st))
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	if out == nil {
		out = []shared.Room{}
	}
	return out
}

func (r *Registry) GetRoom(name string) (shared.Room, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	st, ok := r.rooms[name]
	if !ok {
		return shared.Room{}, false
	}
	return r.snapshot(st), true
}

// AddParticipant：签发 token 即视为加入。重复加入更新既有记录。
// 房间满时报错。
func (r *Registry) AddParticipant(roomName, identity, name, metadata string) (shared.Participant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	st, ok := r.rooms[roomName]
	if !ok {
		return shared.Participant{}, fmt.Errorf("room %s not found", roomName)
	}
	if p, ok := st.participants[identity]; ok {
		p.Name = name
		p.Metadata = metadata
		return *p, nil
	}
	if uint32(len(st.participants)) >= st.room.MaxParticipants {
		return shared.Participant{}, fmt.Errorf("room %s is full", roomName)
	}
	p := &shared.Participant{
		SID:      newSID("PA_"),
		Identity: identity,
		Name:     name,
		State:    "JOINED",
		Metadata: metadata,
		JoinedAt: time.Now().Unix(),
	}
	st.participants[identity] = p
	return *p, nil
}

func (r *Registry) ListParticipants(roomName string) ([]shared.Participant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	st, ok := r.rooms[roomName]
	if !ok {
		return nil, fmt.Errorf("room %s not found", roomName)
	}
	out := make([]shared.Participant, 0, len(st.participants))
	for _, p := range st.participants {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Identity < out[j].Identity })
	return out, nil
}

func (r *Registry) RemoveParticipant(roomName, identity string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	st, ok := r.rooms[roomName]
	if !ok {
		return fmt.Errorf("room %s not found", roomName)
	}
	if _, ok := st.participants[identity]; !ok {
		return fmt.Errorf("participant %s not found in room %s", identity, roomName)
	}
	delete(st.participants, identity)
	return nil
}

func (r *Registry) MuteParticipant(roomName, identity, trackSource string, muted bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	st, ok := r.rooms[roomName]
	if !ok {
		return fmt.Errorf("room %s not found", roomName)
	}
	p, ok := st.participants[identity]
	if !ok {
		return fmt.Errorf("participant %s not found in room %s", identity, roomName)
	}
	if p.MutedTracks == nil {
		p.MutedTracks = make(map[string]bool)
	}
	p.MutedTracks[trackSource] = muted
	return nil
}

// 必须持有 mu 调用
func (r *Registry) snapshot(st *roomState) shared.Room {
	room := st.room
	room.NumParticipants = uint32(len(st.participants))
	return room
}
