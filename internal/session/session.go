// Package session holds the per-chat upload workflow state.
//
// A chat without an entry in the Store is Idle. An entry is created on the
// first successfully staged upload and removed once archiving finishes,
// whatever its outcome.
package session

import (
	"fmt"
	"path/filepath"
	"strings"
)

type State int

const (
	Idle State = iota
	Collecting
	AwaitingPassword
	Archiving
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Collecting:
		return "collecting"
	case AwaitingPassword:
		return "awaiting_password"
	case Archiving:
		return "archiving"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// File is one staged upload. DisplayName becomes the archive member name.
type File struct {
	DisplayName string
	StagedPath  string
	Size        int64
}

type Session struct {
	ChatID int64
	State  State
	Files  []File
}

var transitions = map[State][]State{
	Collecting:       {Collecting, AwaitingPassword},
	AwaitingPassword: {Archiving},
}

// Transition moves the session to the target state and reports whether the
// move was legal. Illegal moves leave the session untouched.
func (s *Session) Transition(to State) bool {
	if to != Collecting && len(s.Files) == 0 {
		return false
	}
	for _, next := range transitions[s.State] {
		if next == to {
			s.State = to
			return true
		}
	}
	return false
}

// Add appends a staged file, keeping insertion order and making the display
// name unique within the session.
func (s *Session) Add(f File) {
	f.DisplayName = s.uniqueName(f.DisplayName)
	s.Files = append(s.Files, f)
}

func (s *Session) uniqueName(name string) string {
	taken := make(map[string]bool, len(s.Files))
	for _, f := range s.Files {
		taken[f.DisplayName] = true
	}
	if !taken[name] {
		return name
	}
	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	for i := 2; ; i++ {
		candidate := fmt.Sprintf("%s (%d)%s", stem, i, ext)
		if !taken[candidate] {
			return candidate
		}
	}
}

// TotalSize is the sum of staged file sizes.
func (s *Session) TotalSize() int64 {
	var n int64
	for _, f := range s.Files {
		n += f.Size
	}
	return n
}
