package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core/room"
	"github.com/trezcool/darasa/core/user"
)

const uniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == uniqueViolation
	}
	return false
}

type roomRepository struct {
	db *sqlx.DB
}

var _ room.Repository = (*roomRepository)(nil)

func NewRoomRepository(db *sqlx.DB) *roomRepository {
	return &roomRepository{db: db}
}

func (r *roomRepository) GetRoom(ctx context.Context, id int) (room.Room, error) {
	var rm room.Room
	err := r.db.GetContext(ctx, &rm, `SELECT * FROM rooms WHERE id = $1`, id)
	if err == sql.ErrNoRows {
		return room.Room{}, room.ErrNotFound
	}
	return rm, err
}

// messageRow joins the sender's public identity onto the message columns.
type messageRow struct {
	ID               string           `db:"id"`
	RoomID           int              `db:"room_id"`
	SenderID         int              `db:"sender_id"`
	Body             string           `db:"body"`
	Type             room.MessageType `db:"type"`
	ParentID         *string          `db:"parent_id"`
	ThreadCount      int              `db:"thread_count"`
	MentionedUserIDs pq.Int64Array    `db:"mentioned_user_ids"`
	IsDeleted        bool             `db:"is_deleted"`
	DeletedBy        *int             `db:"deleted_by"`
	DeletedAt        *time.Time       `db:"deleted_at"`
	CreatedAt        time.Time        `db:"created_at"`
	SenderName       string           `db:"sender_name"`
	SenderAvatar     string           `db:"sender_avatar"`
}

func (row messageRow) toMessage() room.Message {
	mentions := make([]int, 0, len(row.MentionedUserIDs))
	for _, id := range row.MentionedUserIDs {
		mentions = append(mentions, int(id))
	}
	return room.Message{
		ID:               row.ID,
		RoomID:           row.RoomID,
		SenderID:         row.SenderID,
		Sender:           user.Ref{ID: row.SenderID, Name: row.SenderName, Avatar: row.SenderAvatar},
		Body:             row.Body,
		Type:             row.Type,
		ParentID:         row.ParentID,
		ThreadCount:      row.ThreadCount,
		MentionedUserIDs: mentions,
		IsDeleted:        row.IsDeleted,
		DeletedBy:        row.DeletedBy,
		DeletedAt:        row.DeletedAt,
		CreatedAt:        row.CreatedAt,
	}
}

const messageSelect = `
SELECT m.*, u.name AS sender_name, u.avatar AS sender_avatar
FROM messages m
JOIN users u ON u.id = m.sender_id`

func (r *roomRepository) CreateMessage(ctx context.Context, msg room.Message) (room.Message, error) {
	mentions := make(pq.Int64Array, 0, len(msg.MentionedUserIDs))
	for _, id := range msg.MentionedUserIDs {
		mentions = append(mentions, int64(id))
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO messages (id, room_id, sender_id, body, type, parent_id, mentioned_user_ids, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		msg.ID, msg.RoomID, msg.SenderID, msg.Body, msg.Type, msg.ParentID, mentions, msg.CreatedAt,
	)
	if err != nil {
		return room.Message{}, errors.Wrap(err, "creating message")
	}
	return msg, nil
}

func (r *roomRepository) GetMessage(ctx context.Context, roomID int, msgID string) (room.Message, error) {
	var row messageRow
	err := r.db.GetContext(ctx, &row, messageSelect+` WHERE m.id = $1 AND m.room_id = $2`, msgID, roomID)
	if err == sql.ErrNoRows {
		return room.Message{}, room.ErrNotFound
	}
	if err != nil {
		return room.Message{}, err
	}
	return row.toMessage(), nil
}

func (r *roomRepository) QueryMessages(ctx context.Context, roomID int, before time.Time, limit int) ([]room.Message, bool, error) {
	var rows []messageRow
	err := r.db.SelectContext(ctx, &rows, messageSelect+`
		WHERE m.room_id = $1 AND m.created_at < $2
		ORDER BY m.created_at DESC
		LIMIT $3`,
		roomID, before, limit+1,
	)
	if err != nil {
		return nil, false, err
	}

	hasMore := len(rows) > limit
	if hasMore {
		rows = rows[:limit]
	}
	msgs := make([]room.Message, 0, len(rows))
	for _, row := range rows {
		msgs = append(msgs, row.toMessage())
	}
	return msgs, hasMore, nil
}

func (r *roomRepository) SoftDeleteMessage(ctx context.Context, roomID int, msgID string, deletedBy int, deletedAt time.Time) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE messages SET is_deleted = true, deleted_by = $1, deleted_at = $2
		WHERE id = $3 AND room_id = $4`,
		deletedBy, deletedAt, msgID, roomID,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return room.ErrNotFound
	}
	return nil
}

func (r *roomRepository) IncrementThreadCount(ctx context.Context, msgID string) error {
	_, err := r.db.ExecContext(ctx, `UPDATE messages SET thread_count = thread_count + 1 WHERE id = $1`, msgID)
	return err
}

func (r *roomRepository) AddReaction(ctx context.Context, react room.Reaction) error {
	// unique (message, user, emoji): duplicate add is a no-op
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO reactions (message_id, user_id, emoji, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (message_id, user_id, emoji) DO NOTHING`,
		react.MessageID, react.UserID, react.Emoji, react.CreatedAt,
	)
	return err
}

func (r *roomRepository) RemoveReaction(ctx context.Context, messageID string, userID int, emoji string) error {
	_, err := r.db.ExecContext(ctx, `
		DELETE FROM reactions WHERE message_id = $1 AND user_id = $2 AND emoji = $3`,
		messageID, userID, emoji,
	)
	return err
}

func (r *roomRepository) CreateFlag(ctx context.Context, f room.Flag) (room.Flag, error) {
	err := r.db.GetContext(ctx, &f.ID, `
		INSERT INTO flags (room_id, message_id, flagger_id, reason, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`,
		f.RoomID, f.MessageID, f.FlaggerID, f.Reason, f.Status, f.CreatedAt,
	)
	if err != nil {
		return room.Flag{}, errors.Wrap(err, "creating flag")
	}
	return f, nil
}

func (r *roomRepository) GetFlag(ctx context.Context, id int) (room.Flag, error) {
	var f room.Flag
	err := r.db.GetContext(ctx, &f, `SELECT * FROM flags WHERE id = $1`, id)
	if err == sql.ErrNoRows {
		return room.Flag{}, room.ErrNotFound
	}
	return f, err
}

func (r *roomRepository) QueryFlags(ctx context.Context, roomID int, status room.FlagStatus) ([]room.Flag, error) {
	flags := make([]room.Flag, 0)
	err := r.db.SelectContext(ctx, &flags, `
		SELECT * FROM flags WHERE room_id = $1 AND status = $2 ORDER BY created_at`,
		roomID, status,
	)
	return flags, err
}

func (r *roomRepository) UpdateFlag(ctx context.Context, f room.Flag) (room.Flag, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE flags SET status = $1, reviewer_id = $2, reviewed_at = $3 WHERE id = $4`,
		f.Status, f.ReviewerID, f.ReviewedAt, f.ID,
	)
	if err != nil {
		return room.Flag{}, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return room.Flag{}, err
	}
	if n == 0 {
		return room.Flag{}, room.ErrNotFound
	}
	return f, nil
}
