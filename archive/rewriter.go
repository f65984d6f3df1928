package archive

import (
	"fmt"
	"io"
	"io/fs"
	"sync"

	zip "github.com/hidez8891/zip"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/heyleao/mp-mods-ets2/common"
	"github.com/heyleao/mp-mods-ets2/utils/files"
)

// DefaultTarget is the manifest every mod archive carries in its root.
const DefaultTarget = "manifest.sii"

// PatchFunc returns new entry content and whether it differs from data.
type PatchFunc func(data []byte) ([]byte, bool, error)

// for tests
var stageFile = files.Stage

// Rewriter replaces single target entry in archives, keeping all other
// entries (names, headers and compressed data) exactly as they were.
type Rewriter struct {
	Target string
	Patch  PatchFunc
	// DryRun reports what would be done without writing anything.
	DryRun bool

	log *zap.Logger
}

func NewRewriter(target string, patch PatchFunc, log *zap.Logger) *Rewriter {
	if len(target) == 0 {
		target = DefaultTarget
	}
	return &Rewriter{Target: target, Patch: patch, log: log}
}

// Rewrite patches target entry of the archive at path. Archive file is only
// replaced when entry content changes and new archive was completely
// written, otherwise it stays untouched.
//
// Statuses: StatusNoTargetEntry and StatusAlreadyCorrect when there is
// nothing to do, StatusModified on success, StatusReadError (with
// ErrIO, ErrArchiveFormat or ErrDecode) when archive or entry could not be
// read and StatusWriteError when new archive could not be put in place.
// Once started rewrite is never interrupted: cancellation is up to the
// caller, between archives.
func (rw *Rewriter) Rewrite(path string) (common.Status, error) {
	r, err := zip.OpenReader(path)
	if err != nil {
		return common.StatusReadError, classify(err)
	}
	closeReader := sync.OnceValue(r.Close)
	defer closeReader()

	var (
		target *zip.File
		data   []byte
	)
	err = walk(path, r.File, rw.Target, func(_ string, f *zip.File) error {
		if f.Name != rw.Target {
			return nil
		}
		target = f
		if data, err = readEntry(f); err != nil {
			return err
		}
		return fs.SkipAll
	})
	if err != nil {
		return common.StatusReadError, err
	}
	if target == nil {
		return common.StatusNoTargetEntry, nil
	}

	patched, changed, err := rw.Patch(data)
	if err != nil {
		return common.StatusReadError, fmt.Errorf("entry %s: %w", rw.Target, err)
	}
	if !changed {
		return common.StatusAlreadyCorrect, nil
	}
	if rw.DryRun {
		rw.log.Debug("Dry run, archive is not changed", zap.String("archive", path))
		return common.StatusModified, nil
	}

	out, err := rw.stage(path, r.File, target, patched)
	if err != nil {
		return common.StatusWriteError, err
	}
	defer out.Release(rw.log)

	// source must be closed before replacing it (Windows)
	if err := closeReader(); err != nil {
		rw.log.Debug("Unable to close archive", zap.String("archive", path), zap.Error(err))
	}
	if err := out.Commit(); err != nil {
		return common.StatusWriteError, fmt.Errorf("%w: unable to replace archive: %w", common.ErrIO, err)
	}
	return common.StatusModified, nil
}

// stage writes complete new archive into temporary sibling of path. Returned
// staging file is ready to be committed.
func (rw *Rewriter) stage(path string, entries []*zip.File, target *zip.File, content []byte) (_ *files.Staged, err error) {
	out, err := stageFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrIO, err)
	}
	defer func() {
		if err != nil {
			out.Release(rw.log)
		}
	}()

	w := zip.NewWriter(out)
	for _, f := range entries {
		if f == target {
			err = writeEntry(w, f, content)
		} else {
			err = w.CopyFile(f)
		}
		if err != nil {
			return nil, multierr.Append(fmt.Errorf("%w: unable to write entry %s: %w", common.ErrIO, f.Name, err), w.Close())
		}
	}
	if err = w.Close(); err != nil {
		return nil, fmt.Errorf("%w: unable to finish archive: %w", common.ErrIO, err)
	}
	return out, nil
}

func readEntry(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("entry %s: %w", f.Name, classify(err))
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("entry %s: %w", f.Name, classify(err))
	}
	return data, nil
}

// writeEntry stores new content under original header, so name, method,
// times and extra fields stay the same.
func writeEntry(w *zip.Writer, f *zip.File, content []byte) error {
	fh := f.FileHeader
	fh.CRC32 = 0
	fh.CompressedSize, fh.UncompressedSize = 0, 0
	fh.CompressedSize64, fh.UncompressedSize64 = 0, 0

	dst, err := w.CreateHeader(&fh)
	if err != nil {
		return err
	}
	_, err = dst.Write(content)
	return err
}
