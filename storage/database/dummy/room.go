package dummydb

import (
	"context"
	"sort"
	"time"

	"github.com/trezcool/darasa/core/room"
)

type roomRepository struct {
	db *DB
}

var _ room.Repository = (*roomRepository)(nil)

func NewRoomRepository(db *DB) *roomRepository {
	return &roomRepository{db: db}
}

// CreateRoom seeds a room; rooms are otherwise owned by the lesson CRUD.
func (r *roomRepository) CreateRoom(rm room.Room) room.Room {
	t := r.db.room
	t.Lock()
	defer t.Unlock()

	t.pk++
	rm.ID = t.pk
	if rm.CreatedAt.IsZero() {
		rm.CreatedAt = time.Now().UTC()
	}
	t.table[rm.ID] = &rm
	return rm
}

func (r *roomRepository) GetRoom(_ context.Context, id int) (room.Room, error) {
	t := r.db.room
	t.RLock()
	defer t.RUnlock()

	if rm, ok := t.table[id]; ok {
		return *rm, nil
	}
	return room.Room{}, room.ErrNotFound
}

func (r *roomRepository) CreateMessage(_ context.Context, msg room.Message) (room.Message, error) {
	t := r.db.message
	t.Lock()
	defer t.Unlock()

	t.table[msg.ID] = &msg
	return msg, nil
}

func (r *roomRepository) GetMessage(_ context.Context, roomID int, msgID string) (room.Message, error) {
	t := r.db.message
	t.RLock()
	defer t.RUnlock()

	if msg, ok := t.table[msgID]; ok && msg.RoomID == roomID {
		return *msg, nil
	}
	return room.Message{}, room.ErrNotFound
}

func (r *roomRepository) QueryMessages(_ context.Context, roomID int, before time.Time, limit int) ([]room.Message, bool, error) {
	t := r.db.message
	t.RLock()
	defer t.RUnlock()

	matches := make([]room.Message, 0)
	for _, msg := range t.table {
		if msg.RoomID == roomID && msg.CreatedAt.Before(before) {
			matches = append(matches, *msg)
		}
	}
	sort.Slice(matches, func(i, j int) bool { return matches[i].CreatedAt.After(matches[j].CreatedAt) })

	hasMore := len(matches) > limit
	if hasMore {
		matches = matches[:limit]
	}
	return matches, hasMore, nil
}

func (r *roomRepository) SoftDeleteMessage(_ context.Context, roomID int, msgID string, deletedBy int, deletedAt time.Time) error {
	t := r.db.message
	t.Lock()
	defer t.Unlock()

	msg, ok := t.table[msgID]
	if !ok || msg.RoomID != roomID {
		return room.ErrNotFound
	}
	msg.IsDeleted = true
	msg.DeletedBy = &deletedBy
	msg.DeletedAt = &deletedAt
	return nil
}

func (r *roomRepository) IncrementThreadCount(_ context.Context, msgID string) error {
	t := r.db.message
	t.Lock()
	defer t.Unlock()

	msg, ok := t.table[msgID]
	if !ok {
		return room.ErrNotFound
	}
	msg.ThreadCount++
	return nil
}

func (r *roomRepository) AddReaction(_ context.Context, react room.Reaction) error {
	t := r.db.reaction
	t.Lock()
	defer t.Unlock()

	key := reactionKey{messageID: react.MessageID, userID: react.UserID, emoji: react.Emoji}
	if _, exists := t.table[key]; exists {
		return nil // unique (message, user, emoji): duplicate add is a no-op
	}
	t.table[key] = &react
	return nil
}

func (r *roomRepository) RemoveReaction(_ context.Context, messageID string, userID int, emoji string) error {
	t := r.db.reaction
	t.Lock()
	defer t.Unlock()

	delete(t.table, reactionKey{messageID: messageID, userID: userID, emoji: emoji})
	return nil
}

// CountReactions reports the number of reaction rows for a message; test helper.
func (r *roomRepository) CountReactions(messageID string) int {
	t := r.db.reaction
	t.RLock()
	defer t.RUnlock()

	var n int
	for key := range t.table {
		if key.messageID == messageID {
			n++
		}
	}
	return n
}

func (r *roomRepository) CreateFlag(_ context.Context, f room.Flag) (room.Flag, error) {
	t := r.db.flag
	t.Lock()
	defer t.Unlock()

	t.pk++
	f.ID = t.pk
	t.table[f.ID] = &f
	return f, nil
}

func (r *roomRepository) GetFlag(_ context.Context, id int) (room.Flag, error) {
	t := r.db.flag
	t.RLock()
	defer t.RUnlock()

	if f, ok := t.table[id]; ok {
		return *f, nil
	}
	return room.Flag{}, room.ErrNotFound
}

func (r *roomRepository) QueryFlags(_ context.Context, roomID int, status room.FlagStatus) ([]room.Flag, error) {
	t := r.db.flag
	t.RLock()
	defer t.RUnlock()

	flags := make([]room.Flag, 0)
	for _, f := range t.table {
		if f.RoomID == roomID && f.Status == status {
			flags = append(flags, *f)
		}
	}
	sort.Slice(flags, func(i, j int) bool { return flags[i].CreatedAt.Before(flags[j].CreatedAt) })
	return flags, nil
}

func (r *roomRepository) UpdateFlag(_ context.Context, f room.Flag) (room.Flag, error) {
	t := r.db.flag
	t.Lock()
	defer t.Unlock()

	if _, ok := t.table[f.ID]; !ok {
		return room.Flag{}, room.ErrNotFound
	}
	t.table[f.ID] = &f
	return f, nil
}
