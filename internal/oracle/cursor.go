package oracle

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	log "github.com/sirupsen/logrus"
)

// FileCursorStore keeps one integer per (network, account, side) tuple in a
// small text file under dir. Losing a cursor only causes redundant
// re-scanning, so reads are fail-soft: any read or parse error yields the
// fallback, never an error.
type FileCursorStore struct {
	dir string
}

func NewFileCursorStore(dir string) (*FileCursorStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create cursor dir: %s", err)
	}
	return &FileCursorStore{dir: dir}, nil
}

func (s *FileCursorStore) Get(network, account, side string, fallback uint64) uint64 {
	buf, err := os.ReadFile(s.path(network, account, side))
	if err != nil {
		if !os.IsNotExist(err) {
			log.WithError(err).Warn("failed to read cursor, using fallback")
		}
		return fallback
	}
	value, err := strconv.ParseUint(strings.TrimSpace(string(buf)), 10, 64)
	if err != nil {
		log.WithError(err).Warn("malformed cursor, using fallback")
		return fallback
	}
	return value
}

func (s *FileCursorStore) Set(network, account, side string, value uint64) error {
	path := s.path(network, account, side)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, []byte(strconv.FormatUint(value, 10)), 0644); err != nil {
		return fmt.Errorf("failed to write cursor: %s", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("failed to write cursor: %s", err)
	}
	return nil
}

func (s *FileCursorStore) path(network, account, side string) string {
	return filepath.Join(s.dir, fmt.Sprintf("%s-%s-%s.cursor", network, account, side))
}
