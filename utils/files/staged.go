// Package files provides writes which either fully replace target file or
// leave it untouched.
package files

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/heyleao/mp-mods-ets2/common"
)

// Staged is a temporary file created next to its target, so rename on
// Commit never crosses file systems.
type Staged struct {
	*os.File
	target string
	mode   os.FileMode
	done   bool
}

// Stage creates temporary sibling of target. Permissions of the existing
// target are carried over on Commit.
func Stage(target string) (*Staged, error) {
	mode := os.FileMode(0644)
	if fi, err := os.Stat(target); err == nil {
		mode = fi.Mode().Perm()
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}
	f, err := os.CreateTemp(filepath.Dir(target), "."+filepath.Base(target)+".*.tmp")
	if err != nil {
		return nil, fmt.Errorf("unable to create staging file: %w", err)
	}
	return &Staged{File: f, target: target, mode: mode}, nil
}

// Commit flushes staged content and moves it over the target.
func (s *Staged) Commit() error {
	if s.done {
		return errors.New("staging file already finished")
	}
	if err := s.Sync(); err != nil {
		return err
	}
	if err := s.Close(); err != nil {
		return err
	}
	if err := os.Chmod(s.Name(), s.mode); err != nil {
		return err
	}
	if err := os.Rename(s.Name(), s.target); err != nil {
		return err
	}
	s.done = true
	return nil
}

// Discard removes staging file unless it was committed. Safe to defer
// right after Stage.
func (s *Staged) Discard() error {
	if s.done {
		return nil
	}
	s.done = true
	// file may be closed by failed Commit already
	_ = s.Close()
	if err := os.Remove(s.Name()); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// Release discards staging file, failure to remove it is only logged.
func (s *Staged) Release(log *zap.Logger) {
	if err := s.Discard(); err != nil {
		log.Warn("Staging file left behind", zap.String("file", s.Name()), zap.Error(fmt.Errorf("%w: %w", common.ErrTempCleanup, err)))
	}
}

// WriteFile replaces content of the target with data. On failure the target
// is left as it was.
func WriteFile(target string, data []byte, log *zap.Logger) error {
	s, err := Stage(target)
	if err != nil {
		return err
	}
	defer s.Release(log)

	if _, err := s.Write(data); err != nil {
		return err
	}
	return s.Commit()
}
