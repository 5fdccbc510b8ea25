package room

import (
	"fmt"
	"net/mail"
	"time"

	"context"

	"github.com/google/uuid"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/user"
)

// Service is the message pipeline: it validates, persists and fans out chat
// messages, deletions, reactions, flags and the ephemeral classroom signals.
// Persistence must succeed before any broadcast is attempted; a failed
// broadcast after a durable write is logged and dropped, never rolled back.
type Service struct {
	repo        Repository
	guard       *Guard
	mod         *ModerationService
	enrolls     EnrollmentDirectory
	broadcaster Broadcaster
	mailSvc     core.EmailService
	logger      core.Logger
	conf        *core.Config

	nowFunc func() time.Time // mockable
}

func NewService(
	repo Repository,
	guard *Guard,
	mod *ModerationService,
	enrolls EnrollmentDirectory,
	broadcaster Broadcaster,
	mailSvc core.EmailService,
	logger core.Logger,
	conf *core.Config,
) *Service {
	return &Service{
		repo:        repo,
		guard:       guard,
		mod:         mod,
		enrolls:     enrolls,
		broadcaster: broadcaster,
		mailSvc:     mailSvc,
		logger:      logger,
		conf:        conf,
		nowFunc:     time.Now,
	}
}

// PostMessage validates and persists a new message, then broadcasts
// MessageSent to the room excluding the sender. Mentions are resolved against
// the room's member list and mentioned members are notified by email.
func (svc *Service) PostMessage(ctx context.Context, usr user.User, roomID int, nm NewMessage) (Message, error) {
	rm, acc, err := svc.guard.Check(ctx, usr, roomID)
	if err != nil {
		return Message{}, err
	}
	if !acc.Granted {
		return Message{}, acc.Reason
	}

	muted, err := svc.mod.IsMuted(ctx, roomID, usr.ID)
	if err != nil {
		return Message{}, err
	}
	if muted {
		return Message{}, ErrMuted
	}

	if err := nm.Validate(svc.conf.MaxMessageLength); err != nil {
		return Message{}, err
	}

	if nm.ParentID != nil {
		// parent must belong to the same room
		if _, err := svc.repo.GetMessage(ctx, roomID, *nm.ParentID); err != nil {
			return Message{}, err
		}
	}

	members, err := svc.enrolls.EnrolledMembers(ctx, roomID)
	if err != nil {
		return Message{}, err
	}
	mentioned := ExtractMentions(nm.Body, members)

	msg := Message{
		ID:               uuid.NewString(),
		RoomID:           roomID,
		SenderID:         usr.ID,
		Sender:           usr.Ref(),
		Body:             nm.Body,
		Type:             nm.Type,
		ParentID:         nm.ParentID,
		MentionedUserIDs: mentionedIDs(mentioned),
		CreatedAt:        svc.nowFunc().UTC(),
	}
	msg, err = svc.repo.CreateMessage(ctx, msg)
	if err != nil {
		return Message{}, err
	}
	if nm.ParentID != nil {
		if err := svc.repo.IncrementThreadCount(ctx, *nm.ParentID); err != nil {
			return Message{}, err
		}
	}

	svc.broadcaster.Publish(roomID, MessageSent{RoomID: roomID, Message: msg}, usr.ID)
	svc.notifyMentioned(rm, usr, msg, mentioned)
	return msg, nil
}

// DeleteMessage soft-deletes; child thread messages stay addressable. Only
// the sender or the room's teacher may delete.
func (svc *Service) DeleteMessage(ctx context.Context, usr user.User, roomID int, msgID string) error {
	rm, acc, err := svc.guard.Check(ctx, usr, roomID)
	if err != nil {
		return err
	}
	if !acc.Granted {
		return acc.Reason
	}

	msg, err := svc.repo.GetMessage(ctx, roomID, msgID)
	if err != nil {
		return err
	}
	if usr.ID != msg.SenderID && usr.ID != rm.TeacherID {
		return ErrNotAuthorized
	}

	if err := svc.repo.SoftDeleteMessage(ctx, roomID, msgID, usr.ID, svc.nowFunc().UTC()); err != nil {
		return err
	}
	svc.broadcaster.Publish(roomID, MessageDeleted{RoomID: roomID, MessageID: msgID}, usr.ID)
	return nil
}

// React adds a reaction; reacting twice with the same emoji is a no-op.
func (svc *Service) React(ctx context.Context, usr user.User, roomID int, msgID, emoji string) error {
	if err := svc.checkMessageAccess(ctx, usr, roomID, msgID); err != nil {
		return err
	}
	r := Reaction{
		MessageID: msgID,
		UserID:    usr.ID,
		Emoji:     emoji,
		CreatedAt: svc.nowFunc().UTC(),
	}
	return svc.repo.AddReaction(ctx, r)
}

// Unreact removes a reaction; removing a non-existent one is a no-op.
func (svc *Service) Unreact(ctx context.Context, usr user.User, roomID int, msgID, emoji string) error {
	if err := svc.checkMessageAccess(ctx, usr, roomID, msgID); err != nil {
		return err
	}
	return svc.repo.RemoveReaction(ctx, msgID, usr.ID, emoji)
}

// SetTyping broadcasts a volatile typing signal; nothing is persisted and a
// dropped delivery is acceptable. Callers are expected to debounce.
func (svc *Service) SetTyping(ctx context.Context, usr user.User, roomID int, isTyping bool) error {
	acc, err := svc.guard.CanAccess(ctx, usr, roomID)
	if err != nil {
		return err
	}
	if !acc.Granted {
		return acc.Reason
	}
	svc.broadcaster.Publish(roomID, UserTyping{RoomID: roomID, User: usr.Ref(), IsTyping: isTyping}, usr.ID)
	return nil
}

// RaiseHand broadcasts an ephemeral hand-raise signal; nothing is persisted.
func (svc *Service) RaiseHand(ctx context.Context, usr user.User, roomID int) error {
	acc, err := svc.guard.CanAccess(ctx, usr, roomID)
	if err != nil {
		return err
	}
	if !acc.Granted {
		return acc.Reason
	}
	svc.broadcaster.Publish(roomID, HandRaised{RoomID: roomID, User: usr.Ref()}, usr.ID)
	return nil
}

// FlagMessage records a pending report against a message; any member may flag.
func (svc *Service) FlagMessage(ctx context.Context, usr user.User, roomID int, msgID string, nf NewFlag) (Flag, error) {
	if err := svc.checkMessageAccess(ctx, usr, roomID, msgID); err != nil {
		return Flag{}, err
	}
	if err := nf.Validate(); err != nil {
		return Flag{}, err
	}
	f := Flag{
		RoomID:    roomID,
		MessageID: msgID,
		FlaggerID: usr.ID,
		Reason:    nf.Reason,
		Status:    FlagPending,
		CreatedAt: svc.nowFunc().UTC(),
	}
	return svc.repo.CreateFlag(ctx, f)
}

// ReviewFlag transitions pending -> reviewed|dismissed; both are terminal.
// Only the room's teacher may review.
func (svc *Service) ReviewFlag(ctx context.Context, reviewer user.User, flagID int, decision FlagStatus) (Flag, error) {
	if decision != FlagReviewed && decision != FlagDismissed {
		return Flag{}, core.NewValidationError(nil,
			core.FieldError{Field: "status", Error: "must be one of: reviewed, dismissed"})
	}
	f, err := svc.repo.GetFlag(ctx, flagID)
	if err != nil {
		return Flag{}, err
	}
	rm, err := svc.repo.GetRoom(ctx, f.RoomID)
	if err != nil {
		return Flag{}, err
	}
	if reviewer.ID != rm.TeacherID {
		return Flag{}, ErrNotAuthorized
	}
	if f.Status != FlagPending {
		return Flag{}, ErrAlreadyReviewed
	}

	now := svc.nowFunc().UTC()
	f.Status = decision
	f.ReviewerID = &reviewer.ID
	f.ReviewedAt = &now
	return svc.repo.UpdateFlag(ctx, f)
}

// ListFlags returns the room's pending review queue; teacher only.
func (svc *Service) ListFlags(ctx context.Context, reviewer user.User, roomID int) ([]Flag, error) {
	rm, acc, err := svc.guard.Check(ctx, reviewer, roomID)
	if err != nil {
		return nil, err
	}
	if !acc.Granted {
		return nil, acc.Reason
	}
	if reviewer.ID != rm.TeacherID {
		return nil, ErrNotAuthorized
	}
	return svc.repo.QueryFlags(ctx, roomID, FlagPending)
}

// ListMessages pages through a room's history, newest first. The page token
// is the creation timestamp of the oldest message in the previous page.
func (svc *Service) ListMessages(ctx context.Context, usr user.User, roomID int, pageToken string) (MessagePage, error) {
	acc, err := svc.guard.CanAccess(ctx, usr, roomID)
	if err != nil {
		return MessagePage{}, err
	}
	if !acc.Granted {
		return MessagePage{}, acc.Reason
	}

	before := svc.nowFunc().UTC()
	if pageToken != "" {
		before, err = time.Parse(time.RFC3339Nano, pageToken)
		if err != nil {
			return MessagePage{}, core.NewValidationError(err,
				core.FieldError{Field: "page_token", Error: "invalid page token"})
		}
	}

	msgs, hasMore, err := svc.repo.QueryMessages(ctx, roomID, before, svc.conf.PageSize)
	if err != nil {
		return MessagePage{}, err
	}
	page := MessagePage{Messages: msgs, HasMore: hasMore}
	if hasMore && len(msgs) > 0 {
		page.NextToken = msgs[len(msgs)-1].CreatedAt.Format(time.RFC3339Nano)
	}
	return page, nil
}

// OnlineUsers returns the room's live member list. Presence tracking
// (heartbeat + TTL) is not implemented yet; until then the list is empty.
func (svc *Service) OnlineUsers(ctx context.Context, usr user.User, roomID int) ([]user.Ref, error) {
	acc, err := svc.guard.CanAccess(ctx, usr, roomID)
	if err != nil {
		return nil, err
	}
	if !acc.Granted {
		return nil, acc.Reason
	}
	return []user.Ref{}, nil
}

func (svc *Service) checkMessageAccess(ctx context.Context, usr user.User, roomID int, msgID string) error {
	acc, err := svc.guard.CanAccess(ctx, usr, roomID)
	if err != nil {
		return err
	}
	if !acc.Granted {
		return acc.Reason
	}
	if _, err := svc.repo.GetMessage(ctx, roomID, msgID); err != nil {
		return err
	}
	return nil
}

func (svc *Service) notifyMentioned(rm Room, sender user.User, msg Message, mentioned []user.User) {
	if svc.mailSvc == nil || len(mentioned) == 0 {
		return
	}
	msgs := make([]*core.EmailMessage, 0, len(mentioned))
	for _, m := range mentioned {
		if m.ID == sender.ID || m.Email == "" {
			continue
		}
		msgs = append(msgs, &core.EmailMessage{
			To:      []mail.Address{{Name: m.Name, Address: m.Email}},
			Subject: fmt.Sprintf("%s mentioned you in %s", sender.Name, rm.Name),
			BodyStr: msg.Body,
		})
	}
	if len(msgs) > 0 {
		svc.mailSvc.SendMessages(msgs...)
	}
}

func mentionedIDs(members []user.User) []int {
	if len(members) == 0 {
		return nil
	}
	ids := make([]int, 0, len(members))
	for _, m := range members {
		ids = append(ids, m.ID)
	}
	return ids
}
