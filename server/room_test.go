package server

import (
	"errors"
	"fmt"
	"testing"
)

func newLobby(t *testing.T) (*RoomRegistry, *PlayerSession, *PlayerSession, *PlayerSession) {
	t.Helper()
	rooms := NewRoomRegistry()
	a := NewPlayerSession("conn-a", nil)
	a.SetNickname("A")
	b := NewPlayerSession("conn-b", nil)
	b.SetNickname("B")
	c := NewPlayerSession("conn-c", nil)
	c.SetNickname("C")
	return rooms, a, b, c
}

func TestCreateRoomSeedsOwnerAsHost(t *testing.T) {
	rooms, a, _, _ := newLobby(t)
	room := rooms.Create(a, "Arena1", 2)

	if room.HostID != a.ID {
		t.Fatalf("host = %s, want %s", room.HostID, a.ID)
	}
	if a.RoomID != room.ID {
		t.Fatalf("owner roomID = %q, want %q", a.RoomID, room.ID)
	}
	if a.Character() != 2 {
		t.Fatalf("owner character = %d, want 2", a.Character())
	}
	snap := room.Snapshot()
	if snap.GameState != StateWaiting || len(snap.Players) != 1 {
		t.Fatalf("snapshot = %+v", snap)
	}
}

func TestJoinFullRoomRejectsThird(t *testing.T) {
	rooms, a, b, c := newLobby(t)
	room := rooms.Create(a, "Arena1", 1)
	if _, err := rooms.Join(room.ID, b); err != nil {
		t.Fatalf("second join: %v", err)
	}

	_, err := rooms.Join(room.ID, c)
	if !errors.Is(err, ErrRoomFull) {
		t.Fatalf("third join err = %v, want ErrRoomFull", err)
	}
	if c.RoomID != "" {
		t.Fatalf("rejected joiner got roomID %q", c.RoomID)
	}
	if n := len(room.MemberIDs()); n != 2 {
		t.Fatalf("room has %d members, want 2", n)
	}
}

func TestJoinUnknownRoom(t *testing.T) {
	rooms, _, b, _ := newLobby(t)
	if _, err := rooms.Join("nope", b); !errors.Is(err, ErrRoomNotFound) {
		t.Fatalf("err = %v, want ErrRoomNotFound", err)
	}
}

func TestLeaveReassignsHostToRemaining(t *testing.T) {
	rooms, a, b, _ := newLobby(t)
	room := rooms.Create(a, "Arena1", 1)
	if _, err := rooms.Join(room.ID, b); err != nil {
		t.Fatal(err)
	}

	left, ok := rooms.Leave(a)
	if !ok || left == nil {
		t.Fatalf("leave = (%v,%v)", left, ok)
	}
	if left.HostID != b.ID {
		t.Fatalf("host = %s, want %s", left.HostID, b.ID)
	}
	if a.RoomID != "" {
		t.Fatalf("leaver still references room %q", a.RoomID)
	}
}

func TestLastLeaveDestroysRoom(t *testing.T) {
	rooms, a, _, _ := newLobby(t)
	room := rooms.Create(a, "Arena1", 1)

	if _, ok := rooms.Leave(a); !ok {
		t.Fatal("leave reported no-op")
	}
	if _, ok := rooms.Get(room.ID); ok {
		t.Fatal("empty room still registered")
	}
	if len(rooms.List()) != 0 {
		t.Fatal("destroyed room still listed")
	}
}

func TestStartGameRequiresHostTwoPlayersAllReady(t *testing.T) {
	rooms, a, b, _ := newLobby(t)
	room := rooms.Create(a, "Arena1", 1)

	if _, err := room.Start(a.ID); !errors.Is(err, ErrNotEnoughPlayers) {
		t.Fatalf("solo start err = %v", err)
	}
	if _, err := rooms.Join(room.ID, b); err != nil {
		t.Fatal(err)
	}
	if _, err := room.Start(b.ID); !errors.Is(err, ErrNotHost) {
		t.Fatalf("non-host start err = %v", err)
	}
	if _, err := room.Start(a.ID); !errors.Is(err, ErrNotAllReady) {
		t.Fatalf("unready start err = %v", err)
	}
	room.ToggleReady(a.ID)
	if _, err := room.Start(a.ID); !errors.Is(err, ErrNotAllReady) {
		t.Fatalf("half-ready start err = %v", err)
	}

	room.ToggleReady(b.ID)
	md, err := room.Start(a.ID)
	if err != nil {
		t.Fatalf("ready start err = %v", err)
	}
	if md.Player1.Health != 100 || md.Player2.Health != 70 {
		t.Fatalf("match seeded %d/%d", md.Player1.Health, md.Player2.Health)
	}
}

func TestReadyAndCharacterLockedWhilePlaying(t *testing.T) {
	rooms, a, b, _ := newLobby(t)
	room := rooms.Create(a, "Arena1", 1)
	if _, err := rooms.Join(room.ID, b); err != nil {
		t.Fatal(err)
	}
	room.ToggleReady(a.ID)
	room.ToggleReady(b.ID)
	if _, err := room.Start(a.ID); err != nil {
		t.Fatal(err)
	}

	if room.ToggleReady(a.ID) {
		t.Fatal("toggleReady accepted while playing")
	}
	if room.ChangeCharacter(a.ID, 2) {
		t.Fatal("changeCharacter accepted while playing")
	}
}

func TestChangeCharacterAffectsNextStart(t *testing.T) {
	rooms, a, b, _ := newLobby(t)
	room := rooms.Create(a, "Arena1", 1)
	if _, err := rooms.Join(room.ID, b); err != nil {
		t.Fatal(err)
	}
	room.ChangeCharacter(a.ID, 2)
	room.ChangeCharacter(b.ID, 2)
	room.ToggleReady(a.ID)
	room.ToggleReady(b.ID)

	md, err := room.Start(a.ID)
	if err != nil {
		t.Fatal(err)
	}
	if md.Player1.Char != 2 || md.Player1.Health != 70 {
		t.Fatalf("player1 seeded char=%d health=%d, want 2/70", md.Player1.Char, md.Player1.Health)
	}
	if md.Player2.Char != 2 || md.Player2.Health != 70 {
		t.Fatalf("player2 seeded char=%d health=%d, want 2/70", md.Player2.Char, md.Player2.Health)
	}
}

// 改昵称和房间快照来自不同协程：身份字段必须经得起 -race 检查
func TestSnapshotDuringIdentityChange(t *testing.T) {
	rooms, a, b, _ := newLobby(t)
	room := rooms.Create(a, "Arena1", 1)
	if _, err := rooms.Join(room.ID, b); err != nil {
		t.Fatal(err)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 500; i++ {
			a.SetNickname(fmt.Sprintf("A%d", i))
			a.SetCharacter(1 + i%2)
			room.ToggleReady(b.ID)
		}
	}()
	for i := 0; i < 500; i++ {
		snap := room.Snapshot()
		if len(snap.Players) != 2 {
			t.Errorf("snapshot lost a player: %+v", snap)
			break
		}
	}
	<-done
}

func TestListRoomsOccupancy(t *testing.T) {
	rooms, a, b, c := newLobby(t)
	r1 := rooms.Create(a, "Arena1", 1)
	rooms.Create(c, "Arena2", 1)
	if _, err := rooms.Join(r1.ID, b); err != nil {
		t.Fatal(err)
	}

	byID := map[string]RoomListEntry{}
	for _, e := range rooms.List() {
		byID[e.ID] = e
	}
	if len(byID) != 2 {
		t.Fatalf("listed %d rooms, want 2", len(byID))
	}
	full := byID[r1.ID]
	if full.Players != "2/2" || !full.IsFull {
		t.Fatalf("full room entry = %+v", full)
	}
	for id, e := range byID {
		if id == r1.ID {
			continue
		}
		if e.Players != "1/2" || e.IsFull {
			t.Fatalf("half room entry = %+v", e)
		}
	}
}
