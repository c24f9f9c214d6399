package storage

import "github.com/yourname/timetracker/internal"

// Repositories bundles the backend-specific implementations behind the
// repository interfaces. Close flushes and releases the backend.
type Repositories struct {
	Entries       EntryRepository
	Notifications NotificationRepository
	Preferences   PreferencesRepository
	Users         UserRepository
	Close         func() error
}

func NewFileRepositories(usersFile, entriesFile, notificationsFile, preferencesFile string, logger internal.Logger) (*Repositories, error) {
	storage, err := NewFileStorage(usersFile, entriesFile, notificationsFile, preferencesFile, logger)
	if err != nil {
		return nil, err
	}
	return &Repositories{
		Entries:       storage,
		Notifications: storage,
		Preferences:   storage,
		Users:         storage,
		Close:         storage.Close,
	}, nil
}

func NewPostgresRepositories(dsn string, logger internal.Logger) (*Repositories, error) {
	storage, err := NewPostgresStorage(dsn, logger)
	if err != nil {
		return nil, err
	}
	return &Repositories{
		Entries:       storage,
		Notifications: storage,
		Preferences:   storage,
		Users:         storage,
		Close: func() error {
			storage.Close()
			return nil
		},
	}, nil
}
