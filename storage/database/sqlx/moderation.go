package sqlxrepos

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"

	"github.com/trezcool/darasa/core/room"
)

type moderationRepository struct {
	db *sqlx.DB
}

var _ room.ModerationRepository = (*moderationRepository)(nil)

func NewModerationRepository(db *sqlx.DB) *moderationRepository {
	return &moderationRepository{db: db}
}

func (r *moderationRepository) UpsertMute(ctx context.Context, m room.Mute) (room.Mute, error) {
	// one row per (room, user): a new mute supersedes the previous one
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO mutes (room_id, user_id, muted_by, until, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (room_id, user_id)
		DO UPDATE SET muted_by = EXCLUDED.muted_by, until = EXCLUDED.until, created_at = EXCLUDED.created_at`,
		m.RoomID, m.UserID, m.MutedBy, m.Until, m.CreatedAt,
	)
	return m, err
}

func (r *moderationRepository) GetMute(ctx context.Context, roomID, userID int) (room.Mute, error) {
	var m room.Mute
	err := r.db.GetContext(ctx, &m, `SELECT * FROM mutes WHERE room_id = $1 AND user_id = $2`, roomID, userID)
	if err == sql.ErrNoRows {
		return room.Mute{}, room.ErrNotFound
	}
	return m, err
}

func (r *moderationRepository) DeleteMute(ctx context.Context, roomID, userID int) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM mutes WHERE room_id = $1 AND user_id = $2`, roomID, userID)
	return err
}

func (r *moderationRepository) UpsertBan(ctx context.Context, b room.Ban) (room.Ban, error) {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO bans (room_id, user_id, banned_by, reason, until, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (room_id, user_id)
		DO UPDATE SET banned_by = EXCLUDED.banned_by, reason = EXCLUDED.reason, until = EXCLUDED.until, created_at = EXCLUDED.created_at`,
		b.RoomID, b.UserID, b.BannedBy, b.Reason, b.Until, b.CreatedAt,
	)
	return b, err
}

func (r *moderationRepository) GetBan(ctx context.Context, roomID, userID int) (room.Ban, error) {
	var b room.Ban
	err := r.db.GetContext(ctx, &b, `SELECT * FROM bans WHERE room_id = $1 AND user_id = $2`, roomID, userID)
	if err == sql.ErrNoRows {
		return room.Ban{}, room.ErrNotFound
	}
	return b, err
}

func (r *moderationRepository) DeleteBan(ctx context.Context, roomID, userID int) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM bans WHERE room_id = $1 AND user_id = $2`, roomID, userID)
	return err
}
