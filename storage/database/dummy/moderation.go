package dummydb

import (
	"context"

	"github.com/trezcool/darasa/core/room"
)

type moderationRepository struct {
	db *moderationTable
}

var _ room.ModerationRepository = (*moderationRepository)(nil)

func NewModerationRepository(db *DB) *moderationRepository {
	return &moderationRepository{db: db.moderation}
}

func (r *moderationRepository) UpsertMute(_ context.Context, m room.Mute) (room.Mute, error) {
	r.db.Lock()
	defer r.db.Unlock()

	r.db.mutes[moderationKey{roomID: m.RoomID, userID: m.UserID}] = &m
	return m, nil
}

func (r *moderationRepository) GetMute(_ context.Context, roomID, userID int) (room.Mute, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	if m, ok := r.db.mutes[moderationKey{roomID: roomID, userID: userID}]; ok {
		return *m, nil
	}
	return room.Mute{}, room.ErrNotFound
}

func (r *moderationRepository) DeleteMute(_ context.Context, roomID, userID int) error {
	r.db.Lock()
	defer r.db.Unlock()

	delete(r.db.mutes, moderationKey{roomID: roomID, userID: userID})
	return nil
}

func (r *moderationRepository) UpsertBan(_ context.Context, b room.Ban) (room.Ban, error) {
	r.db.Lock()
	defer r.db.Unlock()

	r.db.bans[moderationKey{roomID: b.RoomID, userID: b.UserID}] = &b
	return b, nil
}

func (r *moderationRepository) GetBan(_ context.Context, roomID, userID int) (room.Ban, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	if b, ok := r.db.bans[moderationKey{roomID: roomID, userID: userID}]; ok {
		return *b, nil
	}
	return room.Ban{}, room.ErrNotFound
}

func (r *moderationRepository) DeleteBan(_ context.Context, roomID, userID int) error {
	r.db.Lock()
	defer r.db.Unlock()

	delete(r.db.bans, moderationKey{roomID: roomID, userID: userID})
	return nil
}
