package update

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/moffa90/go-tftpota/partition"
	"github.com/moffa90/go-tftpota/progress"
)

// ConfigStore is the configuration state the engine reads and commits to.
// It is implemented by *store.Store.
type ConfigStore interface {
	// Active returns the active record, nil when none is loaded
	Active() []byte

	// FullImage returns the partition image, nil when it was never loaded
	FullImage() []byte

	// Commit validates and persists a configuration record
	Commit(raw []byte) error

	// CommitFullImage persists a raw partition image
	CommitFullImage(img []byte) error
}

// Engine serves one transfer at a time on behalf of a file transfer server.
//
// The server drives it through four callbacks: OnOpen when a transfer
// starts, OnWriteData or OnReadData for every block, and OnClose when the
// transfer ends. Calls are serialized by the engine. A transfer that stops
// without OnClose leaves its job in place until the next OnOpen discards it.
type Engine struct {
	mu sync.Mutex

	store    ConfigStore
	slots    partition.Writer
	feedback Feedback
	config   Config

	staging *staging
	tracker *progress.Tracker
	job     job
}

// job is the state of the transfer being served.
type job struct {
	kind    Kind
	name    string
	cursor  int64
	total   int64
	session partition.Session
	source  []byte
	opened  time.Time
}

// New creates an engine on top of the configuration store and firmware slots.
// slots may be nil on devices without firmware update support; firmware
// transfers then fail as if no slot were available. A nil feedback discards
// all status output.
//
// Example:
//
//	st := store.New(store.NewFileBackend("/var/lib/otad/config.bin"))
//	_ = st.Load()
//	slots, _ := partition.Open("/var/lib/otad/slots", partition.DefaultSlotSize)
//	eng := update.New(st, slots, display.NewConsole(os.Stdout),
//	    update.WithLogger(logger),
//	    update.WithRebooter(rebooter),
//	)
func New(st ConfigStore, slots partition.Writer, feedback Feedback, opts ...Option) *Engine {
	if st == nil {
		panic("config store cannot be nil")
	}
	if feedback == nil {
		feedback = nopFeedback{}
	}

	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	return &Engine{
		store:    st,
		slots:    slots,
		feedback: feedback,
		config:   cfg,
		staging:  newStaging(StagingSize),
		tracker:  progress.NewTracker(feedback, cfg.ProgressUnits),
	}
}

// Job returns a snapshot of the current job.
func (e *Engine) Job() Job {
	e.mu.Lock()
	defer e.mu.Unlock()

	j := Job{
		Kind:   e.job.kind,
		Name:   e.job.name,
		Cursor: e.job.cursor,
		Total:  e.job.total,
	}
	if e.job.session != nil {
		j.Slot = e.job.session.Slot()
	}
	return j
}

// OnOpen starts a job for the named transfer.
//
// Any abandoned job is discarded first. Unrecognized names then fail without
// touching the staging buffer. Otherwise the staging buffer is filled with
// 0xFF and the job is prepared: firmware writes open a slot session and
// reads require their source to have been loaded. On success a status
// line is shown and the progress indicator restarts.
func (e *Engine) OnOpen(name string, dir Direction) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.abandon()

	kind := Classify(name, dir)
	e.job = job{kind: kind, name: name}
	if kind == KindNone {
		e.logDebug("transfer rejected", "name", name, "direction", dir.String())
		return e.fail(kind, "open", "Wrong file name",
			fmt.Errorf("%w: %q", ErrUnrecognizedFileName, name))
	}

	e.staging.reset()

	var status string
	switch kind {
	case KindLoadFirmware:
		if e.slots == nil {
			return e.fail(kind, "open", "Fail to prep part", ErrStorageSlotUnavailable)
		}
		sess, err := e.slots.Begin()
		if err != nil {
			reason := "Fail to start part wr"
			if errors.Is(err, partition.ErrNoSlot) {
				reason = "Fail to prep part"
			}
			return e.fail(kind, "open", reason, fmt.Errorf("%w: %w", ErrStorageSlotUnavailable, err))
		}
		e.job.session = sess
		e.job.total = e.slots.SlotSize()
		status = "Loading firmware"

	case KindLoadConfig:
		e.job.total = e.staging.capacity()
		status = "Loading config"

	case KindLoadFullImage:
		e.job.total = e.staging.capacity()
		status = "Loading cfg partition"

	case KindSendConfig:
		src := e.store.Active()
		if src == nil {
			return e.fail(kind, "open", "No config to send", ErrNoSourceData)
		}
		e.job.source = src
		e.job.total = int64(len(src))
		status = "Sending config"

	case KindSendFullImage:
		src := e.store.FullImage()
		if src == nil {
			return e.fail(kind, "open", "No cfg part to send", ErrNoSourceData)
		}
		e.job.source = src
		e.job.total = int64(len(src))
		status = "Sending cfg partition"
	}

	e.logInfo("job opened",
		"kind", kind.String(),
		"name", name,
		"total", e.job.total,
	)
	if e.job.session != nil {
		e.logDebug("firmware slot opened", "slot", e.job.session.Slot())
	}

	e.feedback.Message(status)
	e.tracker.Start(e.job.total)
	e.job.opened = time.Now()
	if e.config.Metrics != nil {
		e.config.Metrics.JobOpened(kind.String())
	}
	return nil
}

// OnWriteData accepts the next block of a write transfer and returns the
// number of bytes taken. Firmware is forwarded to the slot session;
// configuration data is staged. A failure aborts the job.
func (e *Engine) OnWriteData(p []byte) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	kind := e.job.kind
	switch kind {
	case KindLoadFirmware:
		if err := e.job.session.Write(p); err != nil {
			return 0, e.fail(kind, "write", "Fail to write to part",
				fmt.Errorf("%w: %w", ErrWriteFailure, err))
		}

	case KindLoadConfig, KindLoadFullImage:
		if err := e.staging.writeAt(p, e.job.cursor); err != nil {
			return 0, e.fail(kind, "write", "Cfg buffer overflow", err)
		}

	case KindNone, KindSendConfig, KindSendFullImage:
		return 0, &JobError{Kind: kind, Op: "write", Err: ErrWrongDirection}
	}

	e.advance(len(p))
	return len(p), nil
}

// OnReadData fills p with the next block of a read transfer and returns
// the number of bytes produced. Zero marks the end of the data.
func (e *Engine) OnReadData(p []byte) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	kind := e.job.kind
	switch kind {
	case KindSendConfig, KindSendFullImage:
		n := copy(p, e.job.source[e.job.cursor:])
		e.advance(n)
		return n, nil

	case KindNone, KindLoadFirmware, KindLoadConfig, KindLoadFullImage:
		return 0, &JobError{Kind: kind, Op: "read", Err: ErrWrongDirection}
	}
	return 0, &JobError{Kind: kind, Op: "read", Err: ErrWrongDirection}
}

// OnClose finishes the current job and commits what it received.
//
// A firmware image is verified and, when valid, selected for the next boot
// followed by a scheduled restart. Configuration data is committed to the
// store. Failures are shown to the user and leave the previous firmware and
// configuration in effect. The job is cleared in every case; the returned
// error is informative only.
func (e *Engine) OnClose() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	kind := e.job.kind
	switch kind {
	case KindLoadFirmware:
		sess := e.job.session
		e.job.session = nil
		if err := sess.Finish(); err != nil {
			return e.fail(kind, "close", "Fail img verification",
				fmt.Errorf("%w: %w", ErrImageRejected, err))
		}
		if err := sess.SetBootTarget(); err != nil {
			return e.fail(kind, "close", "Fail to set boot part",
				fmt.Errorf("%w: %w", ErrWriteFailure, err))
		}

		delay := e.config.RebootDelay
		e.logInfo("firmware update successful", "slot", sess.Slot(), "bytes", e.job.cursor)
		e.feedback.Message(fmt.Sprintf("Update successful\nReboot in %d second", int(delay/time.Second)))
		if e.config.Rebooter != nil {
			e.config.Rebooter.ScheduleRestart(delay)
		}

	case KindLoadConfig:
		if err := e.store.Commit(e.staging.bytes(e.job.cursor)); err != nil {
			return e.fail(kind, "close", commitReason(err), commitError(err))
		}
		e.logInfo("config committed", "bytes", e.job.cursor)

	case KindLoadFullImage:
		if err := e.store.CommitFullImage(e.staging.bytes(e.staging.capacity())); err != nil {
			return e.fail(kind, "close", commitReason(err), commitError(err))
		}
		e.logInfo("config partition committed", "bytes", e.job.cursor)

	case KindSendConfig, KindSendFullImage:
		e.logInfo("job finished", "kind", kind.String(), "bytes", e.job.cursor)

	case KindNone:
		return nil
	}

	e.finish(ResultSuccess)
	return nil
}

// advance moves the cursor and the progress indicator by n bytes.
func (e *Engine) advance(n int) {
	if n <= 0 {
		return
	}
	e.job.cursor += int64(n)
	e.tracker.Add(n)
	if e.config.Metrics != nil {
		e.config.Metrics.BytesTransferred(e.job.kind.String(), n)
	}
}

// fail reports a terminal job error, aborts the job and returns the error.
func (e *Engine) fail(kind Kind, op, reason string, err error) error {
	jerr := &JobError{Kind: kind, Op: op, Reason: reason, Err: err}

	e.logError("job failed",
		"kind", kind.String(),
		"op", op,
		"name", e.job.name,
		"error", err,
	)
	e.feedback.Message(ErrorHeader + reason)

	e.discard()
	e.finish(ResultFailure)
	return jerr
}

// finish records the outcome of an opened job and clears the job.
// Jobs refused by OnOpen are not counted.
func (e *Engine) finish(result string) {
	if e.config.Metrics != nil && !e.job.opened.IsZero() {
		e.config.Metrics.JobClosed(e.job.kind.String(), result, time.Since(e.job.opened))
	}
	e.job = job{}
}

// abandon drops a job that was never closed.
func (e *Engine) abandon() {
	if e.job.kind == KindNone {
		return
	}
	e.logInfo("discarding abandoned job", "kind", e.job.kind.String(), "name", e.job.name, "cursor", e.job.cursor)
	e.discard()
	e.finish(ResultAbandoned)
}

// discard aborts the firmware session of an abandoned or failed job.
func (e *Engine) discard() {
	if e.job.session == nil {
		return
	}
	if err := e.job.session.Abort(); err != nil {
		e.logError("discard firmware session", "slot", e.job.session.Slot(), "error", err)
	}
	e.job.session = nil
}

// logDebug logs a debug message if a logger is configured.
func (e *Engine) logDebug(msg string, keysAndValues ...interface{}) {
	if e.config.Logger != nil {
		e.config.Logger.Debug(msg, keysAndValues...)
	}
}

// logInfo logs an info message if a logger is configured.
func (e *Engine) logInfo(msg string, keysAndValues ...interface{}) {
	if e.config.Logger != nil {
		e.config.Logger.Info(msg, keysAndValues...)
	}
}

// logError logs an error message if a logger is configured.
func (e *Engine) logError(msg string, keysAndValues ...interface{}) {
	if e.config.Logger != nil {
		e.config.Logger.Error(msg, keysAndValues...)
	}
}
