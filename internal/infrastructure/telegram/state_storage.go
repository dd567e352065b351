package telegram

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/gotd/td/telegram/updates"
)

// userState is the persisted update position for one account
type userState struct {
	Pts      int            `json:"pts"`
	Qts      int            `json:"qts"`
	Date     int            `json:"date"`
	Seq      int            `json:"seq"`
	Found    bool           `json:"found"`
	Channels map[string]int `json:"channels,omitempty"`
}

// FileStateStorage implements updates.StateStorage on a JSON file next
// to the session file. Persisting pts lets the updates engine recover
// messages missed while the service was down.
type FileStateStorage struct {
	filePath string
	mu       sync.Mutex
	states   map[string]*userState
	loaded   bool
}

// NewFileStateStorage creates a file-based updates state storage
func NewFileStateStorage(sessionDir, phoneNumber string) (*FileStateStorage, error) {
	if err := os.MkdirAll(sessionDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create session directory: %w", err)
	}

	fileName := fmt.Sprintf("updates_state_%s.json", phoneNumber)
	return &FileStateStorage{
		filePath: filepath.Join(sessionDir, fileName),
		states:   make(map[string]*userState),
	}, nil
}

// loadLocked reads the state file once; a missing file is a fresh start
func (s *FileStateStorage) loadLocked() error {
	if s.loaded {
		return nil
	}

	data, err := os.ReadFile(s.filePath)
	if err != nil {
		if os.IsNotExist(err) {
			s.loaded = true
			return nil
		}
		return fmt.Errorf("failed to read state file: %w", err)
	}

	if len(data) > 0 {
		if err := json.Unmarshal(data, &s.states); err != nil {
			return fmt.Errorf("failed to parse state file: %w", err)
		}
	}
	s.loaded = true
	return nil
}

func (s *FileStateStorage) saveLocked() error {
	data, err := json.Marshal(s.states)
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}
	if err := os.WriteFile(s.filePath, data, 0600); err != nil {
		return fmt.Errorf("failed to write state file: %w", err)
	}
	return nil
}

// userLocked returns the state record for a user, creating it if needed
func (s *FileStateStorage) userLocked(userID int64) *userState {
	key := strconv.FormatInt(userID, 10)
	state, ok := s.states[key]
	if !ok {
		state = &userState{Channels: make(map[string]int)}
		s.states[key] = state
	}
	if state.Channels == nil {
		state.Channels = make(map[string]int)
	}
	return state
}

// GetState retrieves the updates state for a user
func (s *FileStateStorage) GetState(ctx context.Context, userID int64) (updates.State, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.loadLocked(); err != nil {
		return updates.State{}, false, err
	}

	state, ok := s.states[strconv.FormatInt(userID, 10)]
	if !ok || !state.Found {
		return updates.State{}, false, nil
	}
	return updates.State{
		Pts:  state.Pts,
		Qts:  state.Qts,
		Date: state.Date,
		Seq:  state.Seq,
	}, true, nil
}

// SetState saves the complete updates state for a user
func (s *FileStateStorage) SetState(ctx context.Context, userID int64, state updates.State) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.loadLocked(); err != nil {
		return err
	}

	record := s.userLocked(userID)
	record.Pts = state.Pts
	record.Qts = state.Qts
	record.Date = state.Date
	record.Seq = state.Seq
	record.Found = true
	return s.saveLocked()
}

func (s *FileStateStorage) setField(userID int64, set func(*userState)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.loadLocked(); err != nil {
		return err
	}

	record := s.userLocked(userID)
	set(record)
	record.Found = true
	return s.saveLocked()
}

// SetPts updates only the pts value for a user
func (s *FileStateStorage) SetPts(ctx context.Context, userID int64, pts int) error {
	return s.setField(userID, func(u *userState) { u.Pts = pts })
}

// SetQts updates only the qts value for a user
func (s *FileStateStorage) SetQts(ctx context.Context, userID int64, qts int) error {
	return s.setField(userID, func(u *userState) { u.Qts = qts })
}

// SetDate updates only the date value for a user
func (s *FileStateStorage) SetDate(ctx context.Context, userID int64, date int) error {
	return s.setField(userID, func(u *userState) { u.Date = date })
}

// SetSeq updates only the seq value for a user
func (s *FileStateStorage) SetSeq(ctx context.Context, userID int64, seq int) error {
	return s.setField(userID, func(u *userState) { u.Seq = seq })
}

// SetDateSeq updates both date and seq values for a user
func (s *FileStateStorage) SetDateSeq(ctx context.Context, userID int64, date, seq int) error {
	return s.setField(userID, func(u *userState) {
		u.Date = date
		u.Seq = seq
	})
}

// GetChannelPts retrieves the pts value for a specific channel
func (s *FileStateStorage) GetChannelPts(ctx context.Context, userID, channelID int64) (int, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.loadLocked(); err != nil {
		return 0, false, err
	}

	state, ok := s.states[strconv.FormatInt(userID, 10)]
	if !ok {
		return 0, false, nil
	}
	pts, ok := state.Channels[strconv.FormatInt(channelID, 10)]
	return pts, ok, nil
}

// SetChannelPts saves the pts value for a specific channel
func (s *FileStateStorage) SetChannelPts(ctx context.Context, userID, channelID int64, pts int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.loadLocked(); err != nil {
		return err
	}

	record := s.userLocked(userID)
	record.Channels[strconv.FormatInt(channelID, 10)] = pts
	return s.saveLocked()
}

// ForEachChannels iterates over all tracked channels for a user
func (s *FileStateStorage) ForEachChannels(ctx context.Context, userID int64, f func(ctx context.Context, channelID int64, pts int) error) error {
	s.mu.Lock()
	if err := s.loadLocked(); err != nil {
		s.mu.Unlock()
		return err
	}

	type channelPts struct {
		channelID int64
		pts       int
	}
	var channels []channelPts
	if state, ok := s.states[strconv.FormatInt(userID, 10)]; ok {
		for key, pts := range state.Channels {
			channelID, err := strconv.ParseInt(key, 10, 64)
			if err != nil {
				continue
			}
			channels = append(channels, channelPts{channelID: channelID, pts: pts})
		}
	}
	s.mu.Unlock()

	for _, ch := range channels {
		if err := f(ctx, ch.channelID, ch.pts); err != nil {
			return err
		}
	}
	return nil
}

// Ensure FileStateStorage implements updates.StateStorage interface
var _ updates.StateStorage = (*FileStateStorage)(nil)
