package storage

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/yourname/timetracker/internal"
)

// FileStorage keeps everything in memory behind a RWMutex and persists
// JSON snapshots through debounced save workers with atomic renames.
// Both invariants (one running entry per user, one pending notification
// per entry) are check-and-insert under the write lock, so concurrent
// callers within the process cannot race past them.
type FileStorage struct {
	mu sync.RWMutex

	users          map[string]*internal.User // token -> user
	entries        map[string]*internal.TimeEntry
	userEntries    map[string][]*internal.TimeEntry // userID -> entries, newest first
	runningByUser  map[string]string                // userID -> running entry id
	notifications  map[string]*internal.IdleNotification
	pendingByEntry map[string]string // entryID -> pending notification id
	preferences    map[string]*internal.TimePreferences

	usersFile         string
	entriesFile       string
	notificationsFile string
	preferencesFile   string

	saveEntriesChan       chan struct{}
	saveNotificationsChan chan struct{}
	shutdownChan          chan struct{}
	saveDelay             time.Duration

	logger internal.Logger
}

func NewFileStorage(usersFile, entriesFile, notificationsFile, preferencesFile string, logger internal.Logger) (*FileStorage, error) {
	s := &FileStorage{
		users:                 make(map[string]*internal.User),
		entries:               make(map[string]*internal.TimeEntry),
		userEntries:           make(map[string][]*internal.TimeEntry),
		runningByUser:         make(map[string]string),
		notifications:         make(map[string]*internal.IdleNotification),
		pendingByEntry:        make(map[string]string),
		preferences:           make(map[string]*internal.TimePreferences),
		usersFile:             usersFile,
		entriesFile:           entriesFile,
		notificationsFile:     notificationsFile,
		preferencesFile:       preferencesFile,
		saveEntriesChan:       make(chan struct{}, 1),
		saveNotificationsChan: make(chan struct{}, 1),
		shutdownChan:          make(chan struct{}),
		saveDelay:             500 * time.Millisecond,
		logger:                logger,
	}

	if err := s.loadUsers(); err != nil {
		return nil, err
	}
	if err := s.loadEntries(); err != nil {
		return nil, err
	}
	if err := s.loadNotifications(); err != nil {
		return nil, err
	}
	if err := s.loadPreferences(); err != nil {
		return nil, err
	}

	go s.saveWorker(s.saveEntriesChan, s.saveEntries)
	go s.saveWorker(s.saveNotificationsChan, s.saveNotifications)

	return s, nil
}

func loadJSON[T any](path string) ([]T, error) {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer file.Close()

	var items []T
	if err := json.NewDecoder(file).Decode(&items); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, err
	}
	return items, nil
}

func (s *FileStorage) loadUsers() error {
	users, err := loadJSON[*internal.User](s.usersFile)
	if err != nil {
		return err
	}
	for _, u := range users {
		s.users[u.Token] = u
	}
	return nil
}

func (s *FileStorage) loadEntries() error {
	entries, err := loadJSON[*internal.TimeEntry](s.entriesFile)
	if err != nil {
		return err
	}
	for _, e := range entries {
		s.entries[e.ID] = e
		s.userEntries[e.UserID] = append(s.userEntries[e.UserID], e)
		if e.IsRunning {
			s.runningByUser[e.UserID] = e.ID
		}
	}
	for userID := range s.userEntries {
		sort.Slice(s.userEntries[userID], func(i, j int) bool {
			return s.userEntries[userID][i].StartTime.After(s.userEntries[userID][j].StartTime)
		})
	}
	return nil
}

func (s *FileStorage) loadNotifications() error {
	notifications, err := loadJSON[*internal.IdleNotification](s.notificationsFile)
	if err != nil {
		return err
	}
	for _, n := range notifications {
		s.notifications[n.ID] = n
		if n.Pending() {
			s.pendingByEntry[n.EntryID] = n.ID
		}
	}
	return nil
}

func (s *FileStorage) loadPreferences() error {
	prefs, err := loadJSON[*internal.TimePreferences](s.preferencesFile)
	if err != nil {
		return err
	}
	for _, p := range prefs {
		s.preferences[p.UserID] = p
	}
	return nil
}

func atomicWriteFileJSON(filePath string, data interface{}) error {
	tempFile := filePath + ".tmp"
	f, err := os.Create(tempFile)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(data); err != nil {
		f.Close()
		os.Remove(tempFile)
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tempFile)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tempFile)
		return err
	}
	return os.Rename(tempFile, filePath)
}

func (s *FileStorage) saveEntries() error {
	s.mu.RLock()
	entries := make([]*internal.TimeEntry, 0, len(s.entries))
	for _, e := range s.entries {
		entries = append(entries, e)
	}
	s.mu.RUnlock()
	return atomicWriteFileJSON(s.entriesFile, entries)
}

func (s *FileStorage) saveNotifications() error {
	s.mu.RLock()
	notifications := make([]*internal.IdleNotification, 0, len(s.notifications))
	for _, n := range s.notifications {
		notifications = append(notifications, n)
	}
	s.mu.RUnlock()
	return atomicWriteFileJSON(s.notificationsFile, notifications)
}

// saveWorker batches save signals to avoid a disk write per mutation.
func (s *FileStorage) saveWorker(signal <-chan struct{}, save func() error) {
	timer := time.NewTimer(s.saveDelay)
	defer timer.Stop()

	for {
		select {
		case <-signal:
			timer.Reset(s.saveDelay)
		case <-timer.C:
			if err := save(); err != nil {
				s.logger.Errorf("storage: save failed: %v", err)
			}
		case <-s.shutdownChan:
			return
		}
	}
}

func signalSave(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}

// Close stops the workers and flushes pending state synchronously.
func (s *FileStorage) Close() error {
	close(s.shutdownChan)
	if err := s.saveEntries(); err != nil {
		return err
	}
	return s.saveNotifications()
}

// --- EntryRepository ---

func (s *FileStorage) StartEntry(ctx context.Context, entry *internal.TimeEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, running := s.runningByUser[entry.UserID]; running {
		return internal.ErrTimerConflict
	}

	e := *entry
	s.entries[e.ID] = &e
	s.runningByUser[e.UserID] = e.ID

	list := s.userEntries[e.UserID]
	inserted := false
	for i, existing := range list {
		if existing.StartTime.Before(e.StartTime) {
			list = append(list[:i], append([]*internal.TimeEntry{&e}, list[i:]...)...)
			inserted = true
			break
		}
	}
	if !inserted {
		list = append(list, &e)
	}
	s.userEntries[e.UserID] = list

	signalSave(s.saveEntriesChan)
	return nil
}

func (s *FileStorage) FinishEntry(ctx context.Context, entryID string, endTime time.Time, duration time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[entryID]
	if !ok {
		return internal.ErrNotFound
	}
	if !e.IsRunning {
		return internal.ErrTimerNotRunning
	}

	end := endTime
	seconds := int64(duration.Seconds())
	e.EndTime = &end
	e.DurationSeconds = &seconds
	e.IsRunning = false
	delete(s.runningByUser, e.UserID)

	signalSave(s.saveEntriesChan)
	return nil
}

func (s *FileStorage) GetEntry(ctx context.Context, entryID string) (*internal.TimeEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[entryID]
	if !ok {
		return nil, internal.ErrNotFound
	}
	copied := *e
	return &copied, nil
}

func (s *FileStorage) GetActiveEntry(ctx context.Context, userID string) (*internal.TimeEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.runningByUser[userID]
	if !ok {
		return nil, nil
	}
	copied := *s.entries[id]
	return &copied, nil
}

func (s *FileStorage) ListActiveEntries(ctx context.Context) ([]internal.TimeEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []internal.TimeEntry
	for _, id := range s.runningByUser {
		out = append(out, *s.entries[id])
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].StartTime.Before(out[j].StartTime)
	})
	return out, nil
}

func (s *FileStorage) ListEntries(ctx context.Context, userID string, limit int) ([]internal.TimeEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	list := s.userEntries[userID]
	if limit > 0 && limit < len(list) {
		list = list[:limit]
	}
	out := make([]internal.TimeEntry, len(list))
	for i, e := range list {
		out[i] = *e
	}
	return out, nil
}

// --- NotificationRepository ---

func (s *FileStorage) CreatePending(ctx context.Context, n *internal.IdleNotification) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.pendingByEntry[n.EntryID]; exists {
		return nil
	}

	copied := *n
	copied.Action = internal.ActionNone
	s.notifications[copied.ID] = &copied
	s.pendingByEntry[copied.EntryID] = copied.ID

	signalSave(s.saveNotificationsChan)
	return nil
}

func (s *FileStorage) HasPending(ctx context.Context, entryID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.pendingByEntry[entryID]
	return ok, nil
}

func (s *FileStorage) ListPending(ctx context.Context, userID string) ([]internal.IdleNotification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []internal.IdleNotification
	for _, id := range s.pendingByEntry {
		n := s.notifications[id]
		if n.UserID == userID {
			out = append(out, *n)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (s *FileStorage) GetNotification(ctx context.Context, id string) (*internal.IdleNotification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n, ok := s.notifications[id]
	if !ok {
		return nil, internal.ErrNotFound
	}
	copied := *n
	return &copied, nil
}

func (s *FileStorage) ResolveNotification(ctx context.Context, id string, action internal.NotificationAction, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := s.notifications[id]
	if !ok {
		return internal.ErrNotFound
	}
	if !n.Pending() {
		return internal.ErrNotificationActioned
	}

	actionAt := at
	n.Action = action
	n.ActionAt = &actionAt
	delete(s.pendingByEntry, n.EntryID)

	signalSave(s.saveNotificationsChan)
	return nil
}

// --- PreferencesRepository ---

func (s *FileStorage) GetPreferences(ctx context.Context, userID string) (*internal.TimePreferences, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.preferences[userID]
	if !ok {
		return internal.DefaultPreferences(userID), nil
	}
	copied := *p
	return &copied, nil
}

// SetPreferences exists for seeding test fixtures; the service layer
// only ever reads preferences.
func (s *FileStorage) SetPreferences(prefs *internal.TimePreferences) {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *prefs
	s.preferences[prefs.UserID] = &copied
}

// --- UserRepository ---

func (s *FileStorage) GetUserByToken(ctx context.Context, token string) (*internal.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[token]
	if !ok {
		return nil, internal.ErrNotFound
	}
	copied := *u
	return &copied, nil
}

// --- Compile-time assertions ---
var _ EntryRepository = (*FileStorage)(nil)
var _ NotificationRepository = (*FileStorage)(nil)
var _ PreferencesRepository = (*FileStorage)(nil)
var _ UserRepository = (*FileStorage)(nil)
