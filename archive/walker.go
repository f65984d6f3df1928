// Package archive finds and replaces manifest entries inside mod archives.
// Reading and raw entry copying is done with zip fork which could move
// compressed entry data between archives without touching it.
package archive

import (
	"errors"
	"fmt"
	"io/fs"
	"path"
	"strings"

	zip "github.com/hidez8891/zip"

	"github.com/heyleao/mp-mods-ets2/common"
)

// WalkFunc is the type of the function called for each file in archive
// visited by Walk. The archive argument contains path to archive passed to Walk
// The file argument is the zip.File structure for file in archive which satisfies
// match condition. Returning fs.SkipAll stops the walk without error, any
// other error stops processing and is returned by Walk.
type WalkFunc func(archive string, file *zip.File) error

// Walk walks the all files in the archive whose names start with pattern,
// calling walkFn for each item. Archive containing entries with path
// traversal components ("..") or absolute paths is rejected as malformed
// before walkFn is called for any entry.
func Walk(archive, pattern string, walkFn WalkFunc) error {
	r, err := zip.OpenReader(archive)
	if err != nil {
		return classify(err)
	}
	defer r.Close()

	return walk(archive, r.File, pattern, walkFn)
}

func walk(archive string, files []*zip.File, pattern string, walkFn WalkFunc) error {
	if err := checkEntries(files); err != nil {
		return err
	}
	for _, f := range files {
		name := f.FileHeader.Name
		if !f.FileInfo().IsDir() && strings.HasPrefix(name, pattern) {
			if err := walkFn(archive, f); err != nil {
				if errors.Is(err, fs.SkipAll) {
					return nil
				}
				return err
			}
		}
	}
	return nil
}

// checkEntries rejects archive if any of its entry names is unsafe.
func checkEntries(files []*zip.File) error {
	for _, f := range files {
		if name := f.FileHeader.Name; !isSafePath(name) {
			return fmt.Errorf("%w: zip entry %q: unsafe path (absolute or contains path traversal)", common.ErrArchiveFormat, name)
		}
	}
	return nil
}

// isSafePath returns false for paths that could escape the extraction
// directory: absolute paths and those containing ".." components.
func isSafePath(name string) bool {
	if path.IsAbs(name) || strings.HasPrefix(name, "/") || strings.HasPrefix(name, `\`) {
		return false
	}
	for _, part := range strings.Split(name, "/") {
		if part == ".." {
			return false
		}
	}
	return true
}

// classify tags archive reading error: broken archive structure or content
// versus failure to access the file.
func classify(err error) error {
	if errors.Is(err, common.ErrArchiveFormat) || errors.Is(err, common.ErrIO) {
		return err
	}
	if errors.Is(err, zip.ErrFormat) || errors.Is(err, zip.ErrAlgorithm) || errors.Is(err, zip.ErrChecksum) {
		return fmt.Errorf("%w: %w", common.ErrArchiveFormat, err)
	}
	return fmt.Errorf("%w: %w", common.ErrIO, err)
}
