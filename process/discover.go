package process

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strings"

	"github.com/h2non/filetype"
	"github.com/maruel/natural"
	"go.uber.org/zap"

	"github.com/heyleao/mp-mods-ets2/common"
	"github.com/heyleao/mp-mods-ets2/config"
)

// enough for any matcher filetype knows about
const sniffLen = 262

// candidate is a file which will be handed to a task.
type candidate struct {
	path string
	kind common.SourceKind
	info fs.FileInfo
	// ignored archives are reported without being touched
	ignored bool
}

// classifier decides what to do with files found under the source.
type classifier struct {
	fragments  []string
	extensions []string
}

func newClassifier(conf *config.PatcherConfig) *classifier {
	c := &classifier{fragments: slices.Clone(conf.FragmentNames)}
	for _, ext := range conf.ArchiveExtensions {
		c.extensions = append(c.extensions, strings.ToLower(ext))
	}
	return c
}

// classify returns false for files which are not candidates. Archive
// extensions are only a hint, actual format is sniffed from the header:
// .scs mods packed as HashFS are not ZIP and could not be patched.
func (c *classifier) classify(path string, info fs.FileInfo) (candidate, bool, error) {
	name := filepath.Base(path)
	if slices.Contains(c.fragments, name) {
		return candidate{path: path, kind: common.SourceKindFragment, info: info}, true, nil
	}
	if !slices.Contains(c.extensions, strings.ToLower(filepath.Ext(name))) {
		return candidate{}, false, nil
	}
	zip, err := isZipFile(path)
	if err != nil {
		return candidate{}, false, err
	}
	return candidate{path: path, kind: common.SourceKindArchive, info: info, ignored: !zip}, true, nil
}

func isZipFile(path string) (bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return false, err
	}
	defer f.Close()

	head := make([]byte, sniffLen)
	n, err := io.ReadFull(f, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return false, err
	}
	return filetype.Is(head[:n], "zip"), nil
}

// discover finds all candidates under src, which could be a directory (walked
// recursively, symbolic links are not followed) or a single file. Returned
// candidates are in natural path order. Files which could not be classified
// are returned as read errors, so they end up in the error log.
func discover(ctx context.Context, src string, c *classifier, log *zap.Logger) ([]candidate, []common.Result, error) {
	fi, err := os.Stat(src)
	if err != nil {
		return nil, nil, fmt.Errorf("input source was not found: %w", err)
	}

	var (
		found  []candidate
		failed []common.Result
	)
	visit := func(path string, info fs.FileInfo) {
		cand, ok, err := c.classify(path, info)
		switch {
		case err != nil:
			failed = append(failed, common.Result{Path: path, Kind: kindByName(c, path), Status: common.StatusReadError,
				Err: fmt.Errorf("%w: %w", common.ErrIO, err)})
		case ok:
			found = append(found, cand)
		default:
			log.Debug("Skipping file, not a manifest or mod archive", zap.String("file", path))
		}
	}

	switch {
	case fi.Mode().IsRegular():
		visit(src, fi)
		if len(found) == 0 && len(failed) == 0 {
			return nil, nil, fmt.Errorf("input was not recognized as manifest or mod archive (%s)", src)
		}
	case fi.IsDir():
		err = filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err != nil {
				log.Warn("Skipping path", zap.String("path", path), zap.Error(err))
				return nil
			}
			if !d.Type().IsRegular() {
				// directories, links, devices
				return nil
			}
			info, err := d.Info()
			if err != nil {
				log.Warn("Skipping file", zap.String("file", path), zap.Error(err))
				return nil
			}
			visit(path, info)
			return nil
		})
		if err != nil {
			return nil, nil, err
		}
	default:
		return nil, nil, fmt.Errorf("unexpected path mode for (%s)", src)
	}

	sortCandidates(found)
	return found, failed, nil
}

func sortCandidates(cands []candidate) {
	sort.SliceStable(cands, func(i, j int) bool {
		return natural.Less(cands[i].path, cands[j].path)
	})
}

func kindByName(c *classifier, path string) common.SourceKind {
	if slices.Contains(c.fragments, filepath.Base(path)) {
		return common.SourceKindFragment
	}
	return common.SourceKindArchive
}
