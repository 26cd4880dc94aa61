package main

import (
	"context"
	"encoding/binary"
	"fmt"
	"sync"
	"time"

	"github.com/atotto/clipboard"

	"voxpad/audio"
	"voxpad/backend"
	"voxpad/encoder"
	"voxpad/history"
	"voxpad/log"
	"voxpad/recorder"
)

// Flow drives a recording through the pipeline: session -> encoder ->
// upload -> job poll -> text buffer, clipboard and history. It owns
// the busy gates: at most one active session, one in-flight job and
// one in-flight text action. Results and progress reach the UI as
// messages through send; Flow never touches the model directly.
type Flow struct {
	capture  audio.CaptureDevice
	svc      backend.Service
	store    *history.Store
	format   string
	syncMode bool
	send     func(msg any)
	copyText func(string) error

	mu        sync.Mutex
	sess      *recorder.Session
	inFlight  bool
	action    bool
	cancelJob context.CancelFunc
	notes     int
}

func newFlow(capture audio.CaptureDevice, svc backend.Service, store *history.Store, format string, syncMode bool, send func(msg any)) *Flow {
	return &Flow{
		capture:  capture,
		svc:      svc,
		store:    store,
		format:   format,
		syncMode: syncMode,
		send:     send,
		copyText: clipboard.WriteAll,
	}
}

// StartRecording opens a new session. Ignored while a session or an
// upload/poll is in flight.
func (f *Flow) StartRecording() {
	f.mu.Lock()
	if f.sess != nil || f.inFlight {
		f.mu.Unlock()
		return
	}
	sess := recorder.NewSession(f.capture, func(rms float64) {
		f.send(LevelMsg{Level: rms})
	})
	f.sess = sess
	f.mu.Unlock()

	if err := sess.Start(); err != nil {
		f.mu.Lock()
		f.sess = nil
		f.mu.Unlock()
		f.fail("recording", err)
		return
	}
	log.Info("recording_start: " + f.capture.DeviceName())
	f.send(RecordingStartMsg{})
}

func (f *Flow) TogglePause() {
	f.mu.Lock()
	sess := f.sess
	f.mu.Unlock()
	if sess == nil {
		return
	}
	switch sess.State() {
	case recorder.StateRecording:
		if sess.Pause() {
			log.Info("recording_pause")
			f.send(PauseMsg{Paused: true})
		}
	case recorder.StatePaused:
		if sess.Resume() {
			log.Info("recording_resume")
			f.send(PauseMsg{Paused: false})
		}
	}
}

// AbortRecording discards the session without uploading anything.
func (f *Flow) AbortRecording() {
	f.mu.Lock()
	sess := f.sess
	f.sess = nil
	f.mu.Unlock()
	if sess == nil {
		return
	}
	sess.Abort()
	log.Info("recording_abort")
	f.send(RecordingStopMsg{})
}

// FinishAndSend finalizes the session and hands the audio to the
// backend in a goroutine. Too-short recordings are rejected locally
// and nothing is uploaded.
func (f *Flow) FinishAndSend() {
	f.mu.Lock()
	sess := f.sess
	f.sess = nil
	if sess == nil || f.inFlight {
		f.mu.Unlock()
		return
	}
	f.inFlight = true
	f.mu.Unlock()

	duration := sess.Duration()
	pcm, err := sess.Finish()
	f.send(RecordingStopMsg{})
	if err != nil {
		f.jobDone()
		f.fail("recording", err)
		return
	}

	go f.sendNote(pcm, duration)
}

func (f *Flow) sendNote(pcm []byte, duration float64) {
	defer f.jobDone()

	encodeStart := time.Now()
	audioData, filename, err := encodePCM(pcm, f.format)
	if err != nil {
		f.fail("encoding", err)
		return
	}
	encodeTime := time.Since(encodeStart)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	f.mu.Lock()
	f.cancelJob = cancel
	f.mu.Unlock()

	f.send(ProgressMsg{Text: "uploading…"})

	if f.syncMode {
		res, err := f.svc.ProcessAudio(ctx, audioData, filename)
		if err != nil {
			if ctx.Err() != nil {
				log.Info("upload_cancelled")
				return
			}
			f.fail("upload", err)
			return
		}
		f.deliver(res, nil)
		return
	}

	up, err := f.svc.Upload(ctx, audioData, filename, func(notice string) {
		f.send(ProgressMsg{Text: notice})
	})
	if err != nil {
		if ctx.Err() != nil {
			log.Info("upload_cancelled")
			return
		}
		f.fail("upload", err)
		return
	}

	m := uploadMetrics(up, pcm, audioData, duration, encodeTime)
	log.Upload(m, f.format, up.JobID)
	f.send(ProgressMsg{Text: "processing…"})

	for update := range f.svc.WatchJob(ctx, up.JobID) {
		switch {
		case update.Err != nil:
			f.fail("job", update.Err)
			return
		case update.Result != nil:
			f.deliver(update.Result, metricsLines(m))
			return
		default:
			f.send(ProgressMsg{Text: update.Progress})
		}
	}
	// Channel closed without a terminal update: the poll was cancelled.
	log.Info("job_cancelled")
}

func (f *Flow) deliver(res *backend.NoteResult, metrics []string) {
	entry := f.store.Add(history.Entry{ID: res.ID, Title: res.Title, Text: res.Text})
	if err := f.copyText(res.Text); err != nil {
		log.Warnf("clipboard: %v", err)
	}
	log.NoteText(res.Text)

	f.mu.Lock()
	f.notes++
	f.mu.Unlock()

	f.send(NoteReadyMsg{Entry: entry, Metrics: metrics, History: f.store.All()})
}

// CancelJob aborts the in-flight upload or poll. Safe to call when
// nothing is in flight, and safe to call twice.
func (f *Flow) CancelJob() {
	f.mu.Lock()
	cancel := f.cancelJob
	f.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// ApplyAction sends the buffer through the stateless transform
// endpoint. Only one action runs at a time; the buffer is replaced
// only on success, through the resulting message.
func (f *Flow) ApplyAction(text, action, style string) {
	f.mu.Lock()
	if f.action || text == "" {
		f.mu.Unlock()
		return
	}
	f.action = true
	f.mu.Unlock()

	go func() {
		defer func() {
			f.mu.Lock()
			f.action = false
			f.mu.Unlock()
			f.send(ActionIdleMsg{})
		}()

		ctx, cancel := context.WithTimeout(context.Background(), backend.DefaultTimeout)
		defer cancel()
		out, err := f.svc.ManipulateText(ctx, text, action, style)
		if err != nil {
			f.fail("text action", err)
			return
		}
		if err := f.copyText(out); err != nil {
			log.Warnf("clipboard: %v", err)
		}
		f.send(ActionDoneMsg{Action: action, Text: out})
	}()
}

func (f *Flow) ShareNote(text, recipient, method string) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), backend.DefaultTimeout)
		defer cancel()
		msg, err := f.svc.Share(ctx, text, recipient, method)
		if err != nil {
			f.fail("share", err)
			return
		}
		log.Info("shared: " + method)
		f.send(ShareDoneMsg{Message: msg})
	}()
}

func (f *Flow) RemoveEntry(id string) {
	f.store.Remove(id)
	f.send(HistoryMsg{Entries: f.store.All()})
}

// Duration reports the length of the current recording, 0 when idle.
func (f *Flow) Duration() float64 {
	f.mu.Lock()
	sess := f.sess
	f.mu.Unlock()
	if sess == nil {
		return 0
	}
	return sess.Duration()
}

func (f *Flow) NoteCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.notes
}

func (f *Flow) jobDone() {
	f.mu.Lock()
	f.inFlight = false
	f.cancelJob = nil
	f.mu.Unlock()
	f.send(JobIdleMsg{})
}

func (f *Flow) fail(stage string, err error) {
	log.Errorf("%s error: %v", stage, err)
	f.send(FlowErrMsg{Stage: stage, Err: err})
}

// encodePCM packages raw S16LE samples into the chosen container and
// returns the bytes plus the upload filename the server expects.
func encodePCM(pcm []byte, format string) ([]byte, string, error) {
	var enc encoder.Encoder
	var filename string
	switch format {
	case "flac":
		e, err := encoder.NewFlac()
		if err != nil {
			return nil, "", err
		}
		enc, filename = e, "recording.flac"
	default:
		e, err := encoder.NewWav()
		if err != nil {
			return nil, "", err
		}
		enc, filename = e, "recording.wav"
	}

	block := make([]int16, 0, encoder.BlockSize)
	for i := 0; i+1 < len(pcm); i += 2 {
		block = append(block, int16(binary.LittleEndian.Uint16(pcm[i:])))
		if len(block) == encoder.BlockSize {
			if err := enc.EncodeBlock(block); err != nil {
				return nil, "", err
			}
			block = block[:0]
		}
	}
	if len(block) > 0 {
		if err := enc.EncodeBlock(block); err != nil {
			return nil, "", err
		}
	}
	if err := enc.Close(); err != nil {
		return nil, "", err
	}
	return enc.Bytes(), filename, nil
}

func uploadMetrics(up *backend.UploadResult, pcm, encoded []byte, duration float64, encodeTime time.Duration) log.UploadMetrics {
	m := log.UploadMetrics{
		Attempts:      up.Attempts,
		AudioLengthS:  duration,
		RawSizeKB:     float64(len(pcm)) / 1024,
		EncodedSizeKB: float64(len(encoded)) / 1024,
		EncodeTimeMs:  float64(encodeTime.Milliseconds()),
	}
	if len(pcm) > 0 {
		m.CompressionPct = (1 - float64(len(encoded))/float64(len(pcm))) * 100
	}
	if nm := up.Metrics; nm != nil {
		m.DNSTimeMs = float64(nm.DNS.Milliseconds())
		m.TLSTimeMs = float64(nm.TLS.Milliseconds())
		m.TTFBMs = float64(nm.TTFB.Milliseconds())
		m.TotalTimeMs = float64(nm.Total.Milliseconds())
	}
	return m
}

func metricsLines(m log.UploadMetrics) []string {
	lines := []string{
		fmt.Sprintf("audio %.1fs  sent %.1fKB (raw %.1fKB, %.0f%% smaller)",
			m.AudioLengthS, m.EncodedSizeKB, m.RawSizeKB, m.CompressionPct),
		fmt.Sprintf("encode %.0fms  ttfb %.0fms  total %.0fms",
			m.EncodeTimeMs, m.TTFBMs, m.TotalTimeMs),
	}
	if m.Attempts > 1 {
		lines = append(lines, fmt.Sprintf("upload attempts: %d", m.Attempts))
	}
	return lines
}
