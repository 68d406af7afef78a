// Package state persists the local session: auth token, user id,
// onboarding progress and preferences.
package state

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"
)

const (
	// DirEnv is the env var override for the ~/.wisp base (for testing).
	DirEnv = "WISP_STATE_DIR"
	// DefaultDirName is the default base under the user's home.
	DefaultDirName = ".wisp"

	fileName = "state.yaml"
)

// BaseDir returns the state directory: $WISP_STATE_DIR if set, else
// ~/.wisp.
func BaseDir() (string, error) {
	if dir := os.Getenv(DirEnv); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, DefaultDirName), nil
}

// Preferences are user-facing settings.
type Preferences struct {
	PrivateByDefault     bool `yaml:"private_by_default"`
	NotificationsEnabled bool `yaml:"notifications_enabled"`
}

// Session is the persisted state.
type Session struct {
	AccessToken        string      `yaml:"access_token,omitempty"`
	UserID             string      `yaml:"user_id,omitempty"`
	OnboardingComplete bool        `yaml:"onboarding_complete"`
	Preferences        Preferences `yaml:"preferences"`
}

// SignedIn reports whether a token and user are held.
func (s Session) SignedIn() bool {
	return s.AccessToken != "" && s.UserID != ""
}

// Store reads and writes state.yaml under its base directory.
type Store struct {
	baseDir string

	mu sync.Mutex
}

// NewStore creates a store rooted at BaseDir.
func NewStore() (*Store, error) {
	base, err := BaseDir()
	if err != nil {
		return nil, err
	}
	return &Store{baseDir: base}, nil
}

// NewStoreAt creates a store rooted at dir.
func NewStoreAt(dir string) *Store {
	return &Store{baseDir: dir}
}

// BaseDir returns the store's base directory.
func (s *Store) BaseDir() string {
	return s.baseDir
}

// Path returns the state file path.
func (s *Store) Path() string {
	return filepath.Join(s.baseDir, fileName)
}

// Load reads the session. A missing file yields an empty session.
func (s *Store) Load() (Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadLocked()
}

// SignIn stores the token and user id.
func (s *Store) SignIn(token, userID string) (Session, error) {
	if token == "" || userID == "" {
		return Session{}, errors.New("sign in: token and user id are required")
	}
	return s.update(func(sess *Session) {
		sess.AccessToken = token
		sess.UserID = userID
	})
}

// SignOut clears the token and user id. Preferences are kept.
func (s *Store) SignOut() (Session, error) {
	return s.update(func(sess *Session) {
		sess.AccessToken = ""
		sess.UserID = ""
	})
}

// SetOnboardingComplete marks onboarding as done.
func (s *Store) SetOnboardingComplete() (Session, error) {
	return s.update(func(sess *Session) { sess.OnboardingComplete = true })
}

// SetPreferences replaces the preferences.
func (s *Store) SetPreferences(p Preferences) (Session, error) {
	return s.update(func(sess *Session) { sess.Preferences = p })
}

func (s *Store) update(fn func(*Session)) (Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, err := s.loadLocked()
	if err != nil {
		return Session{}, err
	}
	fn(&sess)
	if err := s.saveLocked(sess); err != nil {
		return Session{}, err
	}
	return sess, nil
}

func (s *Store) loadLocked() (Session, error) {
	var sess Session
	b, err := os.ReadFile(s.Path())
	if errors.Is(err, os.ErrNotExist) {
		return sess, nil
	}
	if err != nil {
		return sess, fmt.Errorf("read state: %w", err)
	}
	if err := yaml.Unmarshal(b, &sess); err != nil {
		return Session{}, fmt.Errorf("parse state %s: %w", s.Path(), err)
	}
	return sess, nil
}

// saveLocked writes through a temp file so a crash never leaves a
// truncated state file.
func (s *Store) saveLocked(sess Session) error {
	if err := os.MkdirAll(s.baseDir, 0o700); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}
	b, err := yaml.Marshal(sess)
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}
	tmp, err := os.CreateTemp(s.baseDir, fileName+".*")
	if err != nil {
		return fmt.Errorf("write state: %w", err)
	}
	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write state: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("write state: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.Path()); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("write state: %w", err)
	}
	return nil
}
