// Package batch runs the watermark pipeline over many source files,
// isolating per-file failures.
package batch

import (
	"context"
	"fmt"
	"image"
	"runtime"
	"sync"
	"time"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"
	"go.uber.org/zap"
	_ "golang.org/x/image/webp"
	"golang.org/x/sync/errgroup"

	"photomark/pkg/export"
	"photomark/pkg/watermark"
)

// Renderer is what the batch needs from the watermark package.
type Renderer interface {
	Prepare(s watermark.Settings) error
	Apply(base image.Image, s watermark.Settings) (*image.NRGBA, error)
}

// Exporter writes one composited image.
type Exporter interface {
	Export(img image.Image, sourcePath, outDir string, s watermark.Settings) (string, error)
}

// Progress is reported once per finished file, in submission order.
type Progress struct {
	Done  int
	Total int
	Path  string
	Err   error
}

// ProgressFunc receives progress updates. Calls are serialized.
type ProgressFunc func(Progress)

// FileResult is the outcome for one source file.
type FileResult struct {
	Path    string
	Output  string
	Err     error
	Skipped bool
}

// Failure pairs a source path with a human-readable reason.
type Failure struct {
	Path   string
	Reason string
	Err    error
}

// Result aggregates a batch run.
type Result struct {
	ID        string
	Files     []FileResult
	Succeeded int
	Failed    []Failure
	Skipped   []string
}

// Runner processes batches with a bounded number of concurrent files.
type Runner struct {
	renderer Renderer
	exporter Exporter
	workers  int
	logger   *zap.Logger
}

// Option configures a Runner.
type Option func(*Runner)

// WithWorkers sets the number of files processed concurrently.
func WithWorkers(n int) Option {
	return func(r *Runner) {
		if n > 0 {
			r.workers = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(r *Runner) {
		if l != nil {
			r.logger = l
		}
	}
}

// NewRunner creates a Runner. Workers default to the number of CPUs.
func NewRunner(renderer Renderer, exporter Exporter, opts ...Option) *Runner {
	r := &Runner{
		renderer: renderer,
		exporter: exporter,
		workers:  runtime.NumCPU(),
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run watermarks and exports every path into outDir. Settings problems that
// would fail every file identically are returned before any file is touched.
// Cancelling ctx stops new files from starting; files already in flight
// finish, the rest are reported as skipped and ctx.Err() is returned along
// with the partial result.
func (r *Runner) Run(ctx context.Context, paths []string, s watermark.Settings, outDir string, progress ProgressFunc) (*Result, error) {
	res := &Result{ID: uuid.NewString(), Files: make([]FileResult, len(paths))}
	log := r.logger.With(zap.String("batch_id", res.ID))

	if err := s.Validate(); err != nil {
		return res, err
	}
	if err := export.GuardBatch(paths, outDir, s); err != nil {
		return res, err
	}
	if err := r.renderer.Prepare(s); err != nil {
		return res, err
	}

	log.Info("batch started",
		zap.Int("files", len(paths)),
		zap.String("out_dir", outDir),
		zap.String("mode", string(s.Mode)),
		zap.Int("workers", r.workers))
	start := time.Now()

	rep := newReporter(paths, res.Files, progress)
	g := new(errgroup.Group)
	g.SetLimit(r.workers)

	for i, path := range paths {
		if ctx.Err() != nil {
			for j := i; j < len(paths); j++ {
				res.Files[j] = FileResult{Path: paths[j], Skipped: true}
			}
			break
		}
		i, path := i, path // per-iteration copies (go 1.21 loop semantics)
		g.Go(func() error {
			// ctx may have been cancelled while waiting for a free worker
			if ctx.Err() != nil {
				res.Files[i] = FileResult{Path: path, Skipped: true}
				rep.done(i)
				return nil
			}
			out, err := r.processFile(path, s, outDir)
			res.Files[i] = FileResult{Path: path, Output: out, Err: err}
			if err != nil {
				log.Warn("file failed", zap.String("path", path), zap.Error(err))
			} else {
				log.Debug("file done", zap.String("path", path), zap.String("output", out))
			}
			rep.done(i)
			return nil
		})
	}
	_ = g.Wait()

	for _, f := range res.Files {
		switch {
		case f.Skipped:
			res.Skipped = append(res.Skipped, f.Path)
		case f.Err != nil:
			res.Failed = append(res.Failed, Failure{Path: f.Path, Reason: f.Err.Error(), Err: f.Err})
		default:
			res.Succeeded++
		}
	}

	log.Info("batch finished",
		zap.Int("succeeded", res.Succeeded),
		zap.Int("failed", len(res.Failed)),
		zap.Int("skipped", len(res.Skipped)),
		zap.Duration("elapsed", time.Since(start)))

	if len(res.Skipped) > 0 {
		return res, ctx.Err()
	}
	return res, nil
}

func (r *Runner) processFile(path string, s watermark.Settings, outDir string) (out string, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = watermark.NewError(watermark.KindRender, path, fmt.Errorf("panic: %v", p))
		}
	}()

	src, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return "", watermark.NewError(watermark.KindImageDecode, path, err)
	}
	marked, err := r.renderer.Apply(src, s)
	if err != nil {
		if watermark.KindOf(err) == "" {
			err = watermark.NewError(watermark.KindRender, path, err)
		}
		return "", err
	}
	return r.exporter.Export(marked, path, outDir, s)
}

// reporter emits progress in submission order even when files finish out of
// order. Skipped files are not reported.
type reporter struct {
	mu       sync.Mutex
	paths    []string
	files    []FileResult
	finished []bool
	next     int
	fn       ProgressFunc
}

func newReporter(paths []string, files []FileResult, fn ProgressFunc) *reporter {
	return &reporter{paths: paths, files: files, finished: make([]bool, len(paths)), fn: fn}
}

func (r *reporter) done(i int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.finished[i] = true
	for r.next < len(r.finished) && r.finished[r.next] {
		if r.fn != nil && !r.files[r.next].Skipped {
			r.fn(Progress{
				Done:  r.next + 1,
				Total: len(r.paths),
				Path:  r.paths[r.next],
				Err:   r.files[r.next].Err,
			})
		}
		r.next++
	}
}
