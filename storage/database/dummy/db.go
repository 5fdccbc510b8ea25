package dummydb

import (
	"sync"

	"github.com/trezcool/darasa/core/room"
	"github.com/trezcool/darasa/core/user"
)

// DB is an in-memory stand-in for the real database, used in tests and DEV
// mode. Each table guards its map with a RWMutex; uniqueness constraints are
// emulated where the sqlx schema declares them.
type (
	DB struct {
		user       *userTable
		room       *roomTable
		enrollment *enrollmentTable
		material   *materialTable
		message    *messageTable
		reaction   *reactionTable
		flag       *flagTable
		moderation *moderationTable
		completion *completionTable
	}

	userTable struct {
		sync.RWMutex
		table map[int]*user.User
		pk    int
	}

	roomTable struct {
		sync.RWMutex
		table map[int]*room.Room
		pk    int
	}

	enrollmentTable struct {
		sync.RWMutex
		table map[int]*room.Enrollment
		pk    int
	}

	materialTable struct {
		sync.RWMutex
		table map[int]*room.Material
		pk    int
	}

	messageTable struct {
		sync.RWMutex
		table map[string]*room.Message
	}

	reactionKey struct {
		messageID string
		userID    int
		emoji     string
	}

	reactionTable struct {
		sync.RWMutex
		table map[reactionKey]*room.Reaction
	}

	flagTable struct {
		sync.RWMutex
		table map[int]*room.Flag
		pk    int
	}

	moderationKey struct {
		roomID int
		userID int
	}

	moderationTable struct {
		sync.RWMutex
		mutes map[moderationKey]*room.Mute
		bans  map[moderationKey]*room.Ban
	}

	completionKey struct {
		studentID  int
		materialID int
	}

	completionTable struct {
		sync.RWMutex
		table map[completionKey]*room.CompletionRecord
	}
)

func Open() (*DB, error) {
	db := &DB{
		user:       &userTable{table: make(map[int]*user.User)},
		room:       &roomTable{table: make(map[int]*room.Room)},
		enrollment: &enrollmentTable{table: make(map[int]*room.Enrollment)},
		material:   &materialTable{table: make(map[int]*room.Material)},
		message:    &messageTable{table: make(map[string]*room.Message)},
		reaction:   &reactionTable{table: make(map[reactionKey]*room.Reaction)},
		flag:       &flagTable{table: make(map[int]*room.Flag)},
		moderation: &moderationTable{
			mutes: make(map[moderationKey]*room.Mute),
			bans:  make(map[moderationKey]*room.Ban),
		},
		completion: &completionTable{table: make(map[completionKey]*room.CompletionRecord)},
	}
	return db, nil
}
