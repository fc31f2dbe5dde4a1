package archive

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"sst/internal/config"
	"sst/internal/logging"
	"sst/internal/protocol"
	"sst/internal/services"
	"sst/internal/session"
)

// ErrNoSource is returned by Run when no source directory was selected.
var ErrNoSource = errors.New("no source directory selected")

// ErrBusy is returned by Run while a job is already running.
var ErrBusy = errors.New("archive job already running")

// RootPrefix starts the name of every archive root.
const RootPrefix = "~Archive"

const (
	rootTimeLayout  = "20060102150405"
	maxRootAttempts = 100
)

// State is the lifecycle state of an Archiver.
type State string

const (
	StateIdle    State = "idle"
	StateRunning State = "running"
	StateDone    State = "done"
)

// Options customizes an Archiver.
type Options struct {
	// Progress receives a status line after every step and every copied image.
	Progress func(string)
	// Now overrides the clock used for the archive root timestamp.
	Now func() time.Time
}

// Archiver runs archive jobs. Jobs are strictly sequential.
type Archiver struct {
	cfg      config.Archive
	locator  *Locator
	logger   *slog.Logger
	progress func(string)
	now      func() time.Time

	mu    sync.Mutex
	state State
}

// Result describes a finished archive job.
type Result struct {
	ID         string
	Root       string
	SessionDir string
	// ProtocolPath is empty when writing the protocol failed.
	ProtocolPath string
	// Record is the archived snapshot with logfile and file patterns replaced
	// by what they resolved to.
	Record session.SessionRecord
	Report *Report
}

type job struct {
	id      string
	source  string
	started time.Time
	root    string
	paths   PathBuilder
	record  session.SessionRecord
	report  *Report
}

type measurementPlan struct {
	measurement session.Measurement
	images      []string
}

// NewArchiver builds an Archiver for the given archive settings.
func NewArchiver(cfg config.Archive, logger *slog.Logger, opts Options) *Archiver {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	componentLogger := logging.NewComponentLogger(logger, "archive")
	return &Archiver{
		cfg:      cfg,
		locator:  NewLocator(cfg, componentLogger),
		logger:   componentLogger,
		progress: opts.Progress,
		now:      now,
		state:    StateIdle,
	}
}

// State returns the current lifecycle state.
func (a *Archiver) State() State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

// Run archives source according to record. Apart from an empty or missing
// source, every failure is recorded in the result's report and the job
// carries on with the next unit of work.
func (a *Archiver) Run(ctx context.Context, source string, record session.SessionRecord) (*Result, error) {
	if strings.TrimSpace(source) == "" {
		return nil, ErrNoSource
	}
	abs, err := filepath.Abs(source)
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "archive", "resolve source", source, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, services.Wrap(services.ErrNotFound, "archive", "open source", abs, err)
	}
	if !info.IsDir() {
		return nil, services.Wrap(services.ErrValidation, "archive", "open source", abs+" is not a directory", nil)
	}

	a.mu.Lock()
	if a.state == StateRunning {
		a.mu.Unlock()
		return nil, ErrBusy
	}
	a.state = StateRunning
	a.mu.Unlock()
	defer a.setState(StateDone)

	started := a.now()
	root, rootErr := claimRoot(filepath.Join(abs, RootPrefix+started.Format(rootTimeLayout)))
	snapshot := record.Clone()
	j := &job{
		id:      uuid.NewString(),
		source:  abs,
		started: started,
		root:    root,
		paths:   NewPathBuilder(root, snapshot),
		record:  snapshot,
		report:  NewReport(root),
	}
	ctx = services.WithJobID(ctx, j.id)
	logger := logging.WithContext(ctx, a.logger)
	logger.Info(
		"archive started",
		logging.String("source", abs),
		logging.String("root", root),
		logging.Int("measurements", len(snapshot.Measurements)),
	)

	if rootErr != nil {
		a.record(ctx, j, services.Wrap(services.ErrFilesystem, "archive", "create archive root", "", rootErr))
	}
	plans := a.plan(j)
	a.preflight(ctx, j, plans)
	for i, plan := range plans {
		a.archiveMeasurement(ctx, j, i, plan)
	}
	a.integrateTBV(ctx, j)
	a.copySessionFiles(ctx, j)
	a.sweepDocuments(ctx, j)
	protocolPath := a.writeProtocol(ctx, j)
	a.progressf("Done")

	logger.Info(
		"archive finished",
		logging.String("root", root),
		logging.Int("errors", j.report.Count(services.SeverityError)),
		logging.Int("warnings", j.report.Count(services.SeverityWarning)),
		logging.String("duration", time.Since(started).Round(time.Millisecond).String()),
	)
	return &Result{
		ID:           j.id,
		Root:         root,
		SessionDir:   j.paths.SessionDir(),
		ProtocolPath: protocolPath,
		Record:       j.record.Clone(),
		Report:       j.report,
	}, nil
}

func (a *Archiver) setState(state State) {
	a.mu.Lock()
	a.state = state
	a.mu.Unlock()
}

// claimRoot creates a fresh archive root. Roots are never shared between
// jobs: when base already exists the next free "-N" suffix is taken.
func claimRoot(base string) (string, error) {
	candidate := base
	for n := 2; n <= maxRootAttempts+1; n++ {
		err := os.Mkdir(candidate, 0o755)
		if err == nil {
			return candidate, nil
		}
		if !errors.Is(err, fs.ErrExist) {
			return candidate, err
		}
		candidate = fmt.Sprintf("%s-%d", base, n)
	}
	return base, fmt.Errorf("%s: no free archive root after %d attempts", base, maxRootAttempts)
}

// plan locates the images of every measurement up front so the preflight
// check knows the payload.
func (a *Archiver) plan(j *job) []measurementPlan {
	plans := make([]measurementPlan, 0, len(j.record.Measurements))
	for _, m := range j.record.Measurements {
		plans = append(plans, measurementPlan{measurement: m, images: a.locator.Locate(j.source, m.Number)})
	}
	return plans
}

func (a *Archiver) preflight(ctx context.Context, j *job, plans []measurementPlan) {
	var images []string
	for _, plan := range plans {
		images = append(images, plan.images...)
	}
	payload := payloadSize(images)
	logging.WithContext(ctx, a.logger).Debug("archive payload",
		logging.Int("images", len(images)), logging.Int64("bytes", payload))
	for _, result := range Preflight(j.source, payload, a.cfg.MinFreeMiB) {
		if !result.Passed {
			j.report.Add(services.SeverityWarning, "preflight: %s: %s", result.Name, result.Detail)
			logging.WithContext(ctx, a.logger).Warn("preflight check failed",
				logging.String("check", result.Name), logging.String("detail", result.Detail))
		}
	}
}

func (a *Archiver) archiveMeasurement(ctx context.Context, j *job, pos int, plan measurementPlan) {
	m := plan.measurement
	ctx = services.WithMeasurement(services.WithStep(ctx, stepImages), m.Number)
	a.progressf("Archiving measurement %d of %d (copying images)", pos+1, len(j.record.Measurements))

	copied := a.copyImages(ctx, j, pos, m, plan.images)
	if len(copied) > 0 && a.wantsBVLinks(m) {
		a.progressf("Archiving measurement %d of %d (creating BrainVoyager links)", pos+1, len(j.record.Measurements))
		a.buildBVLinks(services.WithStep(ctx, stepLinks), j, m, copied)
	}
	if m.Type != session.Anatomical {
		a.progressf("Archiving measurement %d of %d (copying logfiles)", pos+1, len(j.record.Measurements))
		a.copyMeasurementLogfiles(services.WithStep(ctx, stepLogfiles), j, pos)
	}
}

// copyMeasurementLogfiles resolves the logfile patterns of the measurement at
// pos into its measurement folder and stores the resolution in the snapshot.
func (a *Archiver) copyMeasurementLogfiles(ctx context.Context, j *job, pos int) {
	m := j.record.Measurements[pos]
	if len(session.SplitPatterns(m.Logfiles)) == 0 {
		return
	}
	label := fmt.Sprintf("measurement %d", m.Number)
	if m.Name == "" {
		a.record(ctx, j, services.Wrap(services.ErrValidation, label, stepLogfiles, "'Name' not specified, logfiles not copied", nil))
		return
	}
	dest := j.paths.MeasurementDir(m)
	if err := Ensure(dest); err != nil {
		a.record(ctx, j, services.Wrap(services.ErrFilesystem, label, stepLogfiles, "create measurement folder", err))
		return
	}
	resolved, errs := CopyPatterns(j.source, dest, m.Logfiles)
	for _, err := range errs {
		a.record(ctx, j, fmt.Errorf("%s: %w", label, err))
	}
	j.record.Measurements[pos].Logfiles = resolved
}

func (a *Archiver) copySessionFiles(ctx context.Context, j *job) {
	if len(session.SplitPatterns(j.record.Files)) == 0 {
		return
	}
	ctx = services.WithStep(ctx, "files")
	a.progressf("Archiving files")
	dest := j.paths.SessionDir()
	if err := Ensure(dest); err != nil {
		a.record(ctx, j, services.Wrap(services.ErrFilesystem, "files", "create session folder", "", err))
		return
	}
	resolved, errs := CopyPatterns(j.source, dest, j.record.Files)
	for _, err := range errs {
		a.record(ctx, j, fmt.Errorf("files: %w", err))
	}
	j.record.Files = resolved
}

func (a *Archiver) writeProtocol(ctx context.Context, j *job) string {
	ctx = services.WithStep(ctx, "protocol")
	dir := j.paths.SessionDir()
	path := filepath.Join(dir, j.record.ProtocolFilename()+".txt")
	if err := Ensure(dir); err != nil {
		a.record(ctx, j, services.Wrap(services.ErrFilesystem, "protocol", "create session folder", "", err))
		return ""
	}
	if err := protocol.WriteFile(path, j.record); err != nil {
		a.record(ctx, j, services.Wrap(services.ErrFilesystem, "protocol", "save scan protocol", "", err))
		return ""
	}
	logging.WithContext(ctx, a.logger).Info("scan protocol written", logging.String("path", path))
	return path
}

// record adds err to the job report and logs it at the matching level.
func (a *Archiver) record(ctx context.Context, j *job, err error) {
	a.recordAs(ctx, j, services.SeverityOf(err), err)
}

func (a *Archiver) recordAs(ctx context.Context, j *job, severity services.Severity, err error) {
	if err == nil {
		return
	}
	j.report.AddAs(severity, err)
	logger := logging.WithContext(ctx, a.logger)
	switch severity {
	case services.SeverityError:
		logger.Error("archive step failed", logging.Error(err))
	case services.SeverityWarning:
		logger.Warn("archive step incomplete", logging.Error(err))
	default:
		logger.Info("archive note", logging.Error(err))
	}
}

func (a *Archiver) progressf(format string, args ...any) {
	if a.progress == nil {
		return
	}
	a.progress(fmt.Sprintf(format, args...))
}
