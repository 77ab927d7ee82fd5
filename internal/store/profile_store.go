package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"

	"parley/internal/identity"
)

const profileExt = ".profile"

// ErrNoProfile is returned when no profile exists for a nickname.
var ErrNoProfile = errors.New("no such profile")

// ErrBadNickname is returned for a nickname that cannot name a profile file,
// such as one carrying a path separator or a leading dot.
var ErrBadNickname = errors.New("invalid nickname")

// ProfileStore stores encrypted user profiles in a directory, one file per
// nickname.
type ProfileStore struct {
	dir string
	log *logrus.Entry
	mu  sync.Mutex
}

// NewProfileStore returns a store rooted at dir. The directory must exist.
func NewProfileStore(dir string, logger *logrus.Logger) *ProfileStore {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &ProfileStore{
		dir: dir,
		log: logger.WithField("component", "profile-store"),
	}
}

// Save seals the user under the passphrase and writes it to disk, replacing
// any existing profile for the same nickname.
func (s *ProfileStore) Save(passphrase string, u *identity.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, err := json.Marshal(u)
	if err != nil {
		return fmt.Errorf("marshal profile: %w", err)
	}
	blob, err := seal(passphrase, raw)
	if err != nil {
		return err
	}
	path, err := s.path(u.Nickname)
	if err != nil {
		return err
	}
	if err := writeFileAtomic(path, blob, 0o600); err != nil {
		return err
	}
	s.log.WithFields(logrus.Fields{
		"nickname": u.Nickname,
		"user_id":  u.ID,
	}).Debug("profile saved")
	return nil
}

// Load opens and decrypts the profile for nickname. A wrong passphrase fails
// without exposing partial state.
func (s *ProfileStore) Load(passphrase, nickname string) (*identity.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	path, err := s.path(nickname)
	if err != nil {
		return nil, err
	}
	blob, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNoProfile, nickname)
		}
		return nil, err
	}
	raw, err := open(passphrase, blob)
	if err != nil {
		return nil, err
	}
	var u identity.User
	if err := json.Unmarshal(raw, &u); err != nil {
		return nil, fmt.Errorf("unmarshal profile: %w", err)
	}
	return &u, nil
}

// List returns the nicknames that have a stored profile, sorted.
func (s *ProfileStore) List() ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), profileExt) {
			continue
		}
		out = append(out, strings.TrimSuffix(e.Name(), profileExt))
	}
	sort.Strings(out)
	return out, nil
}

// path maps a nickname to its profile file, refusing any nickname that would
// escape the store directory.
func (s *ProfileStore) path(nickname string) (string, error) {
	if nickname == "" || nickname != filepath.Base(nickname) || nickname[0] == '.' {
		return "", fmt.Errorf("%w: %q", ErrBadNickname, nickname)
	}
	return filepath.Join(s.dir, nickname+profileExt), nil
}

// writeFileAtomic writes via a temp file then rename.
func writeFileAtomic(path string, data []byte, mode os.FileMode) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, mode); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
