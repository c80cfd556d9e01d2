package config

import (
	"fmt"
	"strconv"
	"strings"
)

// AuthSet is the immutable set of chat identifiers allowed to use the bot.
type AuthSet struct {
	ids map[int64]struct{}
}

func NewAuthSet(ids ...int64) AuthSet {
	m := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		m[id] = struct{}{}
	}
	return AuthSet{ids: m}
}

// ParseAuthSet parses a comma-separated list of chat IDs. Blank entries are skipped.
func ParseAuthSet(s string) (AuthSet, error) {
	var ids []int64
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return AuthSet{}, fmt.Errorf("invalid chat id %q: %w", part, err)
		}
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return AuthSet{}, fmt.Errorf("no chat ids in %q", s)
	}
	return NewAuthSet(ids...), nil
}

func (a AuthSet) Allowed(chatID int64) bool {
	_, ok := a.ids[chatID]
	return ok
}

func (a AuthSet) Len() int { return len(a.ids) }
