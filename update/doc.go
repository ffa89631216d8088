// Package update implements the device side of field updates over a file
// transfer protocol.
//
// # Overview
//
// An Engine serves one transfer at a time. The transfer name and direction
// select the job:
//   - fw.bin (any *.bin), write: stream a firmware image into the update slot
//   - cfg.cfg (any *.cfg), write: replace the configuration record
//   - cfg.cfg (any *.cfg), read: read back the active configuration record
//   - full.cfg, write: overwrite the whole configuration partition
//   - full.cfg, read: read back the whole configuration partition
//
// # Basic Usage
//
// A transfer server calls the four engine callbacks:
//
//	st := store.New(store.NewFileBackend("config.bin"))
//	_ = st.Load()
//	eng := update.New(st, slots, display)
//
//	if err := eng.OnOpen("cfg.cfg", update.Write); err != nil {
//	    return err
//	}
//	for block := range blocks {
//	    if _, err := eng.OnWriteData(block); err != nil {
//	        return err
//	    }
//	}
//	eng.OnClose()
//
// # Configuration Options
//
// Customize behavior with functional options:
//
//	eng := update.New(st, slots, display,
//	    update.WithLogger(myLogger),
//	    update.WithRebooter(rebooter),
//	    update.WithRebootDelay(5*time.Second),
//	    update.WithProgressUnits(64),
//	    update.WithMetrics(recorder),
//	)
//
// # User Feedback
//
// Every job shows a status line when it starts ("Loading firmware",
// "Sending config", ...). Failures show a two-line message made of the
// fixed header "OTA Error:" and a short reason such as "Wrong cfg CRC".
// Progress is reported through Feedback as single-step advances.
//
// # Error Handling
//
// Engine callbacks return *JobError. The wrapped error matches one of:
//   - ErrUnrecognizedFileName: no job serves the transfer name
//   - ErrStorageSlotUnavailable: no firmware slot could be opened
//   - ErrWriteFailure: flash or configuration storage rejected a write
//   - ErrBufferOverflow: staged data exceeds the staging capacity
//   - ErrNoSourceData: the requested data was never validly loaded
//   - ErrWrongDirection: data call not served by the current job
//   - ErrImageRejected: the firmware image failed verification
//
// Configuration commit failures additionally wrap the record validation
// errors (*record.ChecksumMismatchError, *record.SizeOutOfRangeError,
// *record.VersionIncompatibleError). Errors affect only the current job:
// the previous firmware and configuration stay in effect.
package update
