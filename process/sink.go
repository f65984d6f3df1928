package process

import (
	"fmt"
	"os"
	"sort"

	"github.com/maruel/natural"
	"go.uber.org/zap"

	"github.com/heyleao/mp-mods-ets2/common"
	"github.com/heyleao/mp-mods-ets2/journal"
	"github.com/heyleao/mp-mods-ets2/utils/debug"
)

// Summary is what single run has done.
type Summary struct {
	Modified       int
	AlreadyCorrect int
	Skipped        int
	Errored        int
}

func (s Summary) Total() int {
	return s.Modified + s.AlreadyCorrect + s.Skipped + s.Errored
}

// sink is the only consumer of task results. Error log, journal, report and
// counters are touched by sink goroutine alone.
type sink struct {
	errLog  *os.File
	journal *journal.Journal
	runID   string
	dryRun  bool
	log     *zap.Logger

	summary Summary
	// kept for debug report only
	results []common.Result
	keep    bool
}

// openErrorLog opens error log before any processing starts, so inability to
// write it aborts the run.
func openErrorLog(path, mode string) (*os.File, error) {
	flags := os.O_CREATE | os.O_WRONLY
	if mode == "append" {
		flags |= os.O_APPEND
	} else {
		flags |= os.O_TRUNC
	}
	f, err := os.OpenFile(path, flags, 0644)
	if err != nil {
		return nil, fmt.Errorf("%w: unable to open error log: %w", common.ErrIO, err)
	}
	return f, nil
}

// consume drains results until channel is closed.
func (s *sink) consume(results <-chan common.Result) {
	for res := range results {
		s.handle(res)
	}
}

func (s *sink) handle(res common.Result) {
	switch {
	case res.Status == common.StatusModified:
		s.summary.Modified++
		if s.dryRun {
			s.log.Info("Would be modified", zap.Stringer("kind", res.Kind), zap.String("file", res.Path))
		} else {
			s.log.Info("Modified", zap.Stringer("kind", res.Kind), zap.String("file", res.Path))
		}
	case res.Status == common.StatusAlreadyCorrect:
		s.summary.AlreadyCorrect++
		s.log.Info("Already correct", zap.Stringer("kind", res.Kind), zap.String("file", res.Path))
	case res.Status == common.StatusNoTargetEntry:
		s.summary.Skipped++
		s.log.Info("No manifest in archive", zap.String("file", res.Path))
	case res.Status == common.StatusIgnored:
		s.summary.Skipped++
		s.log.Info("Ignored, not a ZIP archive", zap.String("file", res.Path))
	case res.Status.Failed() || res.Err != nil:
		s.summary.Errored++
		s.log.Error("Unable to process file", zap.Stringer("kind", res.Kind), zap.String("file", res.Path),
			zap.Stringer("status", res.Status), zap.Error(res.Err))
		s.writeError(res)
	}

	if s.journal != nil && !s.dryRun && !res.Status.Failed() {
		s.record(res)
	}
	if s.keep {
		s.results = append(s.results, res)
	}
}

func (s *sink) writeError(res common.Result) {
	line := res.ErrorLine()
	if len(line) == 0 {
		// failure without cause
		line = fmt.Sprintf("Error processing %s %s: %s", res.Kind, res.Path, res.Status)
	}
	if _, err := fmt.Fprintln(s.errLog, line); err != nil {
		s.log.Warn("Unable to write error log", zap.String("file", s.errLog.Name()), zap.Error(err))
	}
}

func (s *sink) record(res common.Result) {
	// file may have been replaced, journal needs its current state
	fi, err := os.Stat(res.Path)
	if err != nil {
		s.log.Debug("Unable to stat processed file", zap.String("file", res.Path), zap.Error(err))
		return
	}
	if err := s.journal.Record(res.Path, fi, res.Status, s.runID); err != nil {
		s.log.Warn("Unable to update journal", zap.String("file", res.Path), zap.Error(err))
	}
}

// dump produces results tree for the debug report.
func (s *sink) dump() []byte {
	groups := make(map[common.Status][]common.Result)
	for _, r := range s.results {
		groups[r.Status] = append(groups[r.Status], r)
	}

	tw := debug.NewTreeWriter()
	tw.Line(0, "run %s", s.runID)
	tw.Line(1, "modified=%d already-correct=%d skipped=%d errored=%d",
		s.summary.Modified, s.summary.AlreadyCorrect, s.summary.Skipped, s.summary.Errored)
	for _, status := range common.StatusValues() {
		group := groups[status]
		if !tw.Count(1, status.String(), len(group)) {
			continue
		}
		sort.Slice(group, func(i, j int) bool {
			return natural.Less(group[i].Path, group[j].Path)
		})
		for _, r := range group {
			tw.TextBlock(2, r.Kind.String(), r.Path)
			if r.Err != nil {
				tw.TextBlock(3, "error", r.Err.Error())
			}
		}
	}
	return tw.Bytes()
}
