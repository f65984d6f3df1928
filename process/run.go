// Package process finds manifests and mod archives under the source and
// patches them in parallel, reporting every outcome.
package process

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	cli "github.com/urfave/cli/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/heyleao/mp-mods-ets2/archive"
	"github.com/heyleao/mp-mods-ets2/common"
	"github.com/heyleao/mp-mods-ets2/journal"
	"github.com/heyleao/mp-mods-ets2/patcher"
	"github.com/heyleao/mp-mods-ets2/state"
)

// ErrFilesFailed is returned when at least one file could not be processed.
var ErrFilesFailed = errors.New("some files could not be processed")

func Run(ctx context.Context, cmd *cli.Command) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}

	env := state.EnvFromContext(ctx)
	log := env.Log.Named("patch")

	src := cmd.Args().Get(0)
	if len(src) == 0 {
		return errors.New("no input source has been specified")
	}
	if src, err = filepath.Abs(src); err != nil {
		return err
	}
	if cmd.Args().Len() > 1 {
		log.Warn("Malformed command line, too many sources", zap.Strings("ignoring", cmd.Args().Slice()[1:]))
	}

	env.DryRun, env.Rescan = cmd.Bool("dry-run"), cmd.Bool("rescan")
	if cmd.IsSet("workers") {
		workers := int(cmd.Int("workers"))
		if workers < 0 {
			return fmt.Errorf("number of workers cannot be negative (%d)", workers)
		}
		env.Cfg.Processing.Workers = workers
	}
	if cmd.IsSet("error-log") {
		env.Cfg.Processing.ErrorLog = filepath.Clean(cmd.String("error-log"))
	}

	log.Info("Processing starting", zap.String("source", src), zap.Stringer("run", env.RunID), zap.Bool("dry-run", env.DryRun))
	defer func(start time.Time) {
		log.Info("Processing completed", zap.Duration("elapsed", time.Since(start)))
	}(time.Now())

	summary, err := Process(ctx, src)
	if err != nil {
		return err
	}
	if summary.Errored > 0 {
		return fmt.Errorf("%w: %d of %d, see %s", ErrFilesFailed, summary.Errored, summary.Total(), env.Cfg.Processing.ErrorLog)
	}
	return nil
}

// Process handles the core patching logic independently of CLI framework.
// Configuration, logger, report and options are taken from the environment
// in ctx. Failures of individual files are counted in Summary and written to
// the error log, returned error means the run itself could not be done.
func Process(ctx context.Context, src string) (_ Summary, err error) {
	env := state.EnvFromContext(ctx)
	log := env.Log.Named("patch")
	conf := env.Cfg

	errLog, err := openErrorLog(conf.Processing.ErrorLog, conf.Processing.ErrorLogMode)
	if err != nil {
		return Summary{}, err
	}
	defer func() {
		err = multierr.Append(err, errLog.Close())
	}()
	env.Rpt.Store("error_log.txt", errLog.Name())

	var jrn *journal.Journal
	if len(conf.Journal.Destination) > 0 {
		if jrn, err = journal.Open(conf.Journal.Destination, conf.Patcher.Marker); err != nil {
			return Summary{}, err
		}
		defer func() {
			err = multierr.Append(err, jrn.Close())
		}()
		env.Rpt.Store("journal.db", conf.Journal.Destination)
		log.Debug("Journal loaded", zap.String("file", conf.Journal.Destination), zap.Int("entries", jrn.Len()))
	}

	cands, failed, err := discover(ctx, src, newClassifier(&conf.Patcher), log)
	if err != nil {
		return Summary{}, err
	}

	p := patcher.New(conf.Patcher.BlockKeyword, conf.Patcher.Marker)
	rw := archive.NewRewriter(conf.Patcher.TargetEntry, p.PatchBytes, log.Named("archive"))
	rw.DryRun = env.DryRun

	root := src
	if len(cands) == 1 && cands[0].path == src {
		root = filepath.Dir(src)
	}
	w := &worker{patcher: p, rewriter: rw, dryRun: env.DryRun, rpt: env.Rpt, root: root, log: log}
	s := &sink{errLog: errLog, journal: jrn, runID: env.RunID.String(), dryRun: env.DryRun, log: log, keep: env.Rpt != nil}

	results := make(chan common.Result)
	done := make(chan struct{})
	go func() {
		defer close(done)
		s.consume(results)
	}()

	for _, res := range failed {
		results <- res
	}
	err = dispatch(ctx, cands, conf.Processing.EffectiveWorkers(), w, jrn, env.Rescan, results)
	close(results)
	<-done

	if env.Rpt != nil {
		env.Rpt.StoreData("results.txt", s.dump())
	}
	log.Info("Summary",
		zap.Int("modified", s.summary.Modified),
		zap.Int("already-correct", s.summary.AlreadyCorrect),
		zap.Int("skipped", s.summary.Skipped),
		zap.Int("errored", s.summary.Errored),
		zap.String("error log", errLog.Name()))
	return s.summary, err
}

// dispatch runs tasks on the bounded pool. Cancellation is checked between
// files only: task which has started is allowed to finish.
func dispatch(ctx context.Context, cands []candidate, workers int, w *worker, jrn *journal.Journal, rescan bool, results chan<- common.Result) error {
	var g errgroup.Group
	g.SetLimit(workers)

	for _, c := range cands {
		if err := ctx.Err(); err != nil {
			break
		}
		if jrn != nil && !rescan && !c.ignored {
			if e, ok := jrn.Lookup(c.path, c.info); ok {
				w.log.Debug("Unchanged since last run", zap.String("file", c.path), zap.String("run", e.RunID))
				results <- common.Result{Path: c.path, Kind: c.kind, Status: common.StatusAlreadyCorrect}
				continue
			}
		}
		g.Go(func() error {
			if ctx.Err() != nil {
				// queued before cancellation
				return nil
			}
			results <- w.run(c)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}
