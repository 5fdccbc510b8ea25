package room

import (
	"regexp"
	"strings"

	"github.com/trezcool/darasa/core/user"
)

var mentionRegex = regexp.MustCompile(`@(\w+)`)

// ExtractMentions resolves @username tokens in body against the room's member
// list. Unknown usernames are ignored; each member is returned at most once.
func ExtractMentions(body string, members []user.User) []user.User {
	matches := mentionRegex.FindAllStringSubmatch(body, -1)
	if len(matches) == 0 {
		return nil
	}

	byUsername := make(map[string]user.User, len(members))
	for _, m := range members {
		if m.Username != "" {
			byUsername[strings.ToLower(m.Username)] = m
		}
	}

	var mentioned []user.User
	seen := make(map[int]struct{})
	for _, match := range matches {
		usr, ok := byUsername[strings.ToLower(match[1])]
		if !ok {
			continue
		}
		if _, dup := seen[usr.ID]; dup {
			continue
		}
		seen[usr.ID] = struct{}{}
		mentioned = append(mentioned, usr)
	}
	return mentioned
}
