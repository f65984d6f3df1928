package process

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime/debug"

	"go.uber.org/zap"

	"github.com/heyleao/mp-mods-ets2/archive"
	"github.com/heyleao/mp-mods-ets2/common"
	"github.com/heyleao/mp-mods-ets2/config"
	"github.com/heyleao/mp-mods-ets2/patcher"
	"github.com/heyleao/mp-mods-ets2/utils/files"
)

// worker holds everything file tasks share. All of it is read only.
type worker struct {
	patcher  *patcher.Patcher
	rewriter *archive.Rewriter
	dryRun   bool
	rpt      *config.Report
	// source root, names in debug report are relative to it
	root string
	log  *zap.Logger
}

// run handles single candidate. It never panics and never returns error,
// every outcome is a result. Started task always runs to completion.
func (w *worker) run(c candidate) (res common.Result) {
	res = common.Result{Path: c.path, Kind: c.kind}
	defer func() {
		if r := recover(); r != nil {
			w.log.Error("Task panicked", zap.String("file", c.path), zap.Any("panic", r), zap.ByteString("stack", debug.Stack()))
			res.Status, res.Err = common.StatusReadError, fmt.Errorf("unexpected failure: %v", r)
		}
	}()

	if c.ignored {
		res.Status = common.StatusIgnored
		return res
	}
	if !w.dryRun {
		// keep original for debugging before it is replaced
		if err := w.rpt.StoreCopy(w.reportName(c.path), c.path); err != nil {
			w.log.Debug("Unable to store copy of original", zap.String("file", c.path), zap.Error(err))
		}
	}

	switch c.kind {
	case common.SourceKindArchive:
		res.Status, res.Err = w.rewriter.Rewrite(c.path)
	default:
		res.Status, res.Err = w.patchFragment(c.path)
	}
	return res
}

// patchFragment is loose file counterpart of archive.Rewriter.Rewrite.
func (w *worker) patchFragment(path string) (common.Status, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return common.StatusReadError, fmt.Errorf("%w: %w", common.ErrIO, err)
	}
	patched, changed, err := w.patcher.PatchBytes(data)
	if err != nil {
		return common.StatusReadError, err
	}
	if !changed {
		return common.StatusAlreadyCorrect, nil
	}
	if w.dryRun {
		w.log.Debug("Dry run, file is not changed", zap.String("file", path))
		return common.StatusModified, nil
	}
	if err := files.WriteFile(path, patched, w.log); err != nil {
		return common.StatusWriteError, fmt.Errorf("%w: %w", common.ErrIO, err)
	}
	return common.StatusModified, nil
}

func (w *worker) reportName(path string) string {
	rel, err := filepath.Rel(w.root, path)
	if err != nil || rel == "." {
		rel = filepath.Base(path)
	}
	return "originals/" + filepath.ToSlash(rel)
}
