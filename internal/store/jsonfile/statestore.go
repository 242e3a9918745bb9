// Package jsonfile persists small pieces of client state as JSON files,
// guarded by an advisory file lock so concurrent huddle processes do not
// clobber each other.
package jsonfile

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/hay-kot/huddle/internal/core/chat"
)

// StateFile is the root JSON structure stored on disk.
type StateFile struct {
	Identities map[string]IdentityState `json:"identities"`
}

// IdentityState is the remembered state of one user.
type IdentityState struct {
	LastRoom  chat.RoomID `json:"last_room,omitempty"`
	UpdatedAt time.Time   `json:"updated_at"`
}

// StateStore remembers per-identity client state between runs.
type StateStore struct {
	path string
	mu   sync.RWMutex
}

// NewStateStore creates a state store at the given path.
func NewStateStore(path string) *StateStore {
	return &StateStore{path: path}
}

func (s *StateStore) lockPath() string {
	return s.path + ".lock"
}

func (s *StateStore) withSharedLock(fn func() error) error {
	return s.withFileLock(syscall.LOCK_SH, fn)
}

func (s *StateStore) withExclusiveLock(fn func() error) error {
	return s.withFileLock(syscall.LOCK_EX, fn)
}

// withFileLock acquires a file lock, executes fn, then releases the lock.
func (s *StateStore) withFileLock(lockType int, fn func() error) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create lock directory: %w", err)
	}

	f, err := os.OpenFile(s.lockPath(), os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return fmt.Errorf("open lock file: %w", err)
	}
	defer f.Close() //nolint:errcheck

	if err := syscall.Flock(int(f.Fd()), lockType); err != nil {
		return fmt.Errorf("acquire file lock: %w", err)
	}
	defer syscall.Flock(int(f.Fd()), syscall.LOCK_UN) //nolint:errcheck

	return fn()
}

// LastRoom returns the room me had open last, or zero.
func (s *StateStore) LastRoom(ctx context.Context, me chat.UserID) (chat.RoomID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var room chat.RoomID
	err := s.withSharedLock(func() error {
		file, err := s.load()
		if err != nil {
			return err
		}
		room = file.Identities[key(me)].LastRoom
		return nil
	})
	return room, err
}

// SetLastRoom records the room me has open. Zero clears it.
func (s *StateStore) SetLastRoom(ctx context.Context, me chat.UserID, room chat.RoomID) error {
	return s.update(func(file *StateFile) bool {
		st := file.Identities[key(me)]
		if st.LastRoom == room {
			return false
		}
		st.LastRoom = room
		st.UpdatedAt = time.Now()
		file.Identities[key(me)] = st
		return true
	})
}

// ForgetRoom clears the last room of me if it is room. Used after leaving.
func (s *StateStore) ForgetRoom(ctx context.Context, me chat.UserID, room chat.RoomID) error {
	return s.update(func(file *StateFile) bool {
		st, ok := file.Identities[key(me)]
		if !ok || st.LastRoom != room {
			return false
		}
		st.LastRoom = 0
		st.UpdatedAt = time.Now()
		file.Identities[key(me)] = st
		return true
	})
}

// update applies fn under the exclusive lock and saves when fn reports a
// change.
func (s *StateStore) update(fn func(*StateFile) bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.withExclusiveLock(func() error {
		file, err := s.load()
		if err != nil {
			return err
		}
		if !fn(&file) {
			return nil
		}
		return s.save(file)
	})
}

// load reads the state file from disk.
// Returns an empty StateFile if the file doesn't exist.
func (s *StateStore) load() (StateFile, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return StateFile{Identities: make(map[string]IdentityState)}, nil
		}
		return StateFile{}, err
	}

	if len(data) == 0 {
		return StateFile{Identities: make(map[string]IdentityState)}, nil
	}

	var file StateFile
	if err := json.Unmarshal(data, &file); err != nil {
		return StateFile{}, fmt.Errorf("parse %s: %w", s.path, err)
	}

	if file.Identities == nil {
		file.Identities = make(map[string]IdentityState)
	}

	return file, nil
}

// save writes the state file to disk atomically.
func (s *StateStore) save(file StateFile) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(file, "", "  ")
	if err != nil {
		return err
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}

	if err := os.Rename(tmp, s.path); err != nil {
		_ = os.Remove(tmp) // best effort cleanup
		return fmt.Errorf("rename temp file: %w", err)
	}

	return nil
}

func key(me chat.UserID) string {
	return strconv.FormatInt(int64(me), 10)
}
