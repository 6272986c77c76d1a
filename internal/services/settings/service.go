// Package settings manages user preferences with file watching and persistence.
package settings

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/j-veylop/cost-dashboard-tui/internal/config"
	"github.com/j-veylop/cost-dashboard-tui/internal/logger"
	"github.com/j-veylop/cost-dashboard-tui/internal/models"
)

// Event represents a settings service event.
type Event struct {
	Error    error
	Settings config.Settings
	Type     EventType
}

// EventType defines the type of settings event.
type EventType int

const (
	EventSettingsLoaded EventType = iota
	EventSettingsChanged
	EventError
)

const debounceInterval = 100 * time.Millisecond

// Service holds the current settings and reloads them when the file changes.
type Service struct {
	watcher       *fsnotify.Watcher
	eventChan     chan Event
	stopChan      chan struct{}
	debounceTimer *time.Timer
	filePath      string
	settings      config.Settings
	mu            sync.RWMutex
	closeOnce     sync.Once
}

// New loads the settings file and starts watching it. A missing file is
// created with defaults.
func New(filePath string) (*Service, error) {
	if filePath == "" {
		return nil, errors.New("settings path is empty")
	}

	s := &Service{
		filePath:  filePath,
		eventChan: make(chan Event, 100),
		stopChan:  make(chan struct{}),
	}

	if err := os.MkdirAll(filepath.Dir(filePath), 0o750); err != nil {
		return nil, fmt.Errorf("failed to create settings directory: %w", err)
	}

	settings, err := config.LoadSettings(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}
	s.settings = settings

	if _, err := os.Stat(filePath); errors.Is(err, os.ErrNotExist) {
		if err := config.SaveSettings(filePath, settings); err != nil {
			return nil, fmt.Errorf("failed to create settings file: %w", err)
		}
	}

	if err := s.startWatcher(); err != nil {
		return nil, fmt.Errorf("failed to start file watcher: %w", err)
	}

	s.sendEvent(Event{Type: EventSettingsLoaded, Settings: settings})
	return s, nil
}

// Events returns the event channel for subscribing to settings changes.
func (s *Service) Events() <-chan Event {
	return s.eventChan
}

// Path returns the settings file path.
func (s *Service) Path() string {
	return s.filePath
}

// Get returns the current settings.
func (s *Service) Get() config.Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.settings
}

// Period returns the configured aggregate period.
func (s *Service) Period() models.Period {
	return models.ParsePeriod(s.Get().AggregatePeriod)
}

// SetBudget stores a new budget. Zero or a negative value clears it.
func (s *Service) SetBudget(budget float64) error {
	if budget < 0 {
		budget = 0
	}
	return s.update(func(st *config.Settings) { st.Budget = budget })
}

// SetSubscriptionGroup stores the selected subscription group.
func (s *Service) SetSubscriptionGroup(group string) error {
	if group == "" {
		group = models.AllGroups
	}
	return s.update(func(st *config.Settings) { st.SubscriptionGroup = group })
}

// SetPeriod stores the aggregate period.
func (s *Service) SetPeriod(p models.Period) error {
	return s.update(func(st *config.Settings) { st.AggregatePeriod = p.String() })
}

// SetReportDir stores the directory used for local exports.
func (s *Service) SetReportDir(dir string) error {
	if dir == "" {
		dir = "."
	}
	return s.update(func(st *config.Settings) { st.ReportDir = dir })
}

func (s *Service) update(fn func(st *config.Settings)) error {
	s.mu.Lock()
	next := s.settings
	fn(&next)
	if err := config.SaveSettings(s.filePath, next); err != nil {
		s.mu.Unlock()
		return fmt.Errorf("failed to save settings: %w", err)
	}
	s.settings = next
	s.mu.Unlock()

	s.sendEvent(Event{Type: EventSettingsChanged, Settings: next})
	return nil
}

// startWatcher starts the file system watcher.
func (s *Service) startWatcher() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	s.watcher = watcher

	// Watch the directory to catch editors that replace the file.
	if err := watcher.Add(filepath.Dir(s.filePath)); err != nil {
		if closeErr := watcher.Close(); closeErr != nil {
			logger.Error("failed to close watcher", "error", closeErr)
		}
		return err
	}

	go s.watchLoop()
	return nil
}

// watchLoop handles file system events with debouncing.
func (s *Service) watchLoop() {
	for {
		select {
		case event, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != filepath.Base(s.filePath) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}

			s.mu.Lock()
			if s.debounceTimer != nil {
				s.debounceTimer.Stop()
			}
			s.debounceTimer = time.AfterFunc(debounceInterval, s.handleFileChange)
			s.mu.Unlock()

		case err, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
			s.sendEvent(Event{Type: EventError, Error: err})

		case <-s.stopChan:
			return
		}
	}
}

// handleFileChange reloads the settings after an external change. Writes
// that leave the settings unchanged, including our own, are ignored.
func (s *Service) handleFileChange() {
	settings, err := config.LoadSettings(s.filePath)
	if err != nil {
		logger.Warn("failed to reload settings", "path", s.filePath, "error", err)
		s.sendEvent(Event{Type: EventError, Error: err})
		return
	}

	s.mu.Lock()
	changed := settings != s.settings
	s.settings = settings
	s.mu.Unlock()

	if changed {
		logger.Info("settings reloaded", "path", s.filePath)
		s.sendEvent(Event{Type: EventSettingsChanged, Settings: settings})
	}
}

// sendEvent sends an event to the event channel non-blocking.
func (s *Service) sendEvent(event Event) {
	select {
	case s.eventChan <- event:
	default:
		// Channel full, drop oldest event
		select {
		case <-s.eventChan:
		default:
		}
		select {
		case s.eventChan <- event:
		default:
		}
	}
}

// Close stops the file watcher and cleans up resources.
func (s *Service) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.stopChan)

		s.mu.Lock()
		if s.debounceTimer != nil {
			s.debounceTimer.Stop()
		}
		s.mu.Unlock()

		if s.watcher != nil {
			err = s.watcher.Close()
		}
	})
	return err
}
