package room_test

import (
	"testing"

	"github.com/trezcool/darasa/core/room"
	"github.com/trezcool/darasa/core/user"
)

func Test_ExtractMentions(t *testing.T) {
	alice := user.User{ID: 1, Name: "Alice", Username: "alice"}
	bob := user.User{ID: 2, Name: "Bob", Username: "bob_b"}
	members := []user.User{alice, bob}

	tests := []struct {
		name string
		body string
		want []int
	}{
		{name: "no mentions", body: "hello class", want: nil},
		{name: "single", body: "hey @alice!", want: []int{1}},
		{name: "case insensitive", body: "hey @ALICE", want: []int{1}},
		{name: "underscore username", body: "ping @bob_b", want: []int{2}},
		{name: "unknown ignored", body: "hey @charlie", want: nil},
		{name: "duplicates collapse", body: "@alice @alice @alice", want: []int{1}},
		{name: "multiple in order", body: "@bob_b then @alice", want: []int{2, 1}},
		{name: "email is not a mention of the domain", body: "mail me at alice@school.cd", want: nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := room.ExtractMentions(tt.body, members)
			if len(got) != len(tt.want) {
				t.Fatalf("ExtractMentions() = %+v; want ids %v", got, tt.want)
			}
			for i, usr := range got {
				if usr.ID != tt.want[i] {
					t.Errorf("got[%d].ID = %d; want %d", i, usr.ID, tt.want[i])
				}
			}
		})
	}
}
