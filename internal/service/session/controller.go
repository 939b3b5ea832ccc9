// Package session runs monitoring sessions: it owns the camera for the
// lifetime of a session, samples it at the configured cadence and sends each
// sample to the detection service, one request at a time.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"drowsyguard/internal/auth"
	"drowsyguard/internal/logger"
	"drowsyguard/internal/model"
	"drowsyguard/internal/service/capture"
	"drowsyguard/internal/service/detection"
)

// Status texts shown to the user.
const (
	StatusMonitoring     = "Monitoring..."
	StatusDrowsy         = "DROWSINESS DETECTED!"
	StatusStopped        = "Monitoring stopped"
	StatusTimeout        = "Server response timeout. Retrying..."
	StatusConnectionLost = "Connection to server lost. Retrying..."
)

// ErrClosed is returned by Start after Close.
var ErrClosed = errors.New("session controller closed")

// StatusText maps a failed detection to the text shown to the user.
func StatusText(err error) string {
	var de *model.DetectionError
	switch {
	case errors.Is(err, model.ErrTimeout):
		return StatusTimeout
	case errors.As(err, &de) && de.Kind == model.DetectionServerError:
		return fmt.Sprintf("Server error: %d. Retrying...", de.Status)
	}
	return StatusConnectionLost
}

// Handle identifies a started session.
type Handle struct {
	SessionID string
}

// Options wires the controller. Source, Encoder and Detector are required.
type Options struct {
	Source   capture.Source
	Encoder  Encoder
	Detector Detector
	Notifier Notifier
	Alerter  Alerter
	Recorder Recorder
	Guard    auth.Guard
	Logger   *logger.Logger
	// DetectTimeout bounds each detection round trip.
	DetectTimeout time.Duration
}

// Snapshot is a point-in-time copy of the controller state.
type Snapshot struct {
	Session    model.Session  `json:"session"`
	Duration   string         `json:"duration"`
	FPS        int            `json:"fps"`
	Status     string         `json:"status"`
	Settings   model.Settings `json:"settings"`
	Frame      string         `json:"frame,omitempty"`
	Dispatched uint64         `json:"dispatched"`
	Skipped    uint64         `json:"skipped"`
}

// run is one Active session. Fields below mu-guarded are only touched with
// Controller.mu held.
type run struct {
	camera   capture.Camera
	deviceID string

	inFlight   atomic.Bool
	dispatched atomic.Uint64
	skipped    atomic.Uint64

	reconfig chan time.Duration
	stop     chan struct{}
	done     chan struct{}

	// mu-guarded
	session  model.Session
	settings model.Settings
	fps      fpsMeter
	frame    string
}

// Controller owns the session state machine. At most one session is Active.
type Controller struct {
	source        capture.Source
	encoder       Encoder
	detector      Detector
	notifier      Notifier
	alerter       Alerter
	recorder      Recorder
	guard         auth.Guard
	logger        *logger.Logger
	detectTimeout time.Duration

	// lifecycle serializes Start, Stop, Reconfigure and Close.
	lifecycle sync.Mutex

	mu      sync.Mutex
	current *run
	status  string

	// Cancelled by Close; parent of every detection call.
	ctx    context.Context
	cancel context.CancelFunc
	cycles sync.WaitGroup
}

// NewController builds an idle controller.
func NewController(opts Options) *Controller {
	c := &Controller{
		source:        opts.Source,
		encoder:       opts.Encoder,
		detector:      opts.Detector,
		notifier:      opts.Notifier,
		alerter:       opts.Alerter,
		recorder:      opts.Recorder,
		guard:         opts.Guard,
		logger:        opts.Logger,
		detectTimeout: opts.DetectTimeout,
	}
	if c.notifier == nil {
		c.notifier = nopNotifier{}
	}
	if c.alerter == nil {
		c.alerter = nopAlerter{}
	}
	if c.recorder == nil {
		c.recorder = nopRecorder{}
	}
	if c.guard == nil {
		c.guard = auth.Open{}
	}
	if c.logger == nil {
		c.logger = logger.Discard()
	}
	if c.detectTimeout <= 0 {
		c.detectTimeout = detection.DefaultTimeout
	}
	c.ctx, c.cancel = context.WithCancel(context.Background())
	return c
}

// Start opens the selected camera and begins sampling it. A session that is
// already Active is stopped first. On a camera failure the controller stays
// Idle and the *model.CameraError is returned.
func (c *Controller) Start(ctx context.Context, settings model.Settings) (Handle, error) {
	if err := c.guard.Authorize(ctx); err != nil {
		return Handle{}, err
	}
	if err := settings.Validate(); err != nil {
		return Handle{}, err
	}

	c.lifecycle.Lock()
	defer c.lifecycle.Unlock()

	if c.ctx.Err() != nil {
		return Handle{}, ErrClosed
	}

	c.mu.Lock()
	prev := c.current
	c.mu.Unlock()
	if prev != nil {
		c.halt(prev)
	}

	camera, err := c.source.Open(settings.SelectedDeviceID)
	if err != nil {
		c.logger.Error("Error accessing webcam %q: %v", settings.SelectedDeviceID, err)
		c.mu.Lock()
		c.status = fmt.Sprintf("Error accessing webcam: %v", err)
		c.publish(model.EventStatus, "", model.StatusData{Text: c.status})
		c.mu.Unlock()
		return Handle{}, fmt.Errorf("failed to open camera: %w", err)
	}

	now := time.Now()
	r := &run{
		camera:   camera,
		deviceID: settings.SelectedDeviceID,
		reconfig: make(chan time.Duration, 1),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
		session: model.Session{
			ID:        uuid.NewString(),
			State:     model.SessionActive,
			StartedAt: &now,
			Alert:     model.AlertNormal,
		},
		settings: settings,
	}
	r.fps.reset(now)

	c.mu.Lock()
	c.current = r
	c.status = StatusMonitoring
	c.publish(model.EventSession, r.session.ID, r.session)
	c.publish(model.EventAlertState, r.session.ID, r.session.Alert)
	c.publish(model.EventAlertCount, r.session.ID, 0)
	c.publish(model.EventStatus, r.session.ID, model.StatusData{Text: c.status})
	c.mu.Unlock()

	c.recorder.SessionStarted(r.session, r.deviceID)
	c.logger.Info("Session %s started on camera %q at %.2f Hz", r.session.ID, r.deviceID, settings.CadenceHz)

	go c.loop(r, settings.Period())
	return Handle{SessionID: r.session.ID}, nil
}

// Stop ends the session identified by h. Stopping an idle controller or a
// session that has already ended does nothing.
func (c *Controller) Stop(h Handle) {
	c.lifecycle.Lock()
	defer c.lifecycle.Unlock()

	c.mu.Lock()
	r := c.current
	c.mu.Unlock()
	if r == nil || r.session.ID != h.SessionID {
		return
	}
	c.halt(r)
}

// Reconfigure applies new settings to the Active session. The cadence ticker is
// restarted with the new period; a cycle in flight is left alone. A camera
// change takes effect on the next Start. Idle or stale handles are a no-op.
func (c *Controller) Reconfigure(ctx context.Context, h Handle, settings model.Settings) error {
	if err := c.guard.Authorize(ctx); err != nil {
		return err
	}
	if err := settings.Validate(); err != nil {
		return err
	}

	c.lifecycle.Lock()
	defer c.lifecycle.Unlock()

	c.mu.Lock()
	r := c.current
	if r == nil || r.session.ID != h.SessionID {
		c.mu.Unlock()
		return nil
	}
	changed := r.settings.Period() != settings.Period()
	r.settings = settings
	c.mu.Unlock()

	if changed {
		// reconfig ma bufor 1, wysyłamy tylko najnowszy okres
		select {
		case <-r.reconfig:
		default:
		}
		r.reconfig <- settings.Period()
	}
	c.logger.Info("Session %s reconfigured: %.2f Hz, mode %s, volume %d", h.SessionID, settings.CadenceHz, settings.AlertMode, settings.AlertVolume)
	return nil
}

// Current returns the handle of the Active session.
func (c *Controller) Current() (Handle, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current == nil {
		return Handle{}, false
	}
	return Handle{SessionID: c.current.session.ID}, true
}

// Snapshot returns the current state. An idle controller reports an Idle
// session with a zero count and duration.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	snap := Snapshot{
		Session:  model.Session{State: model.SessionIdle, Alert: model.AlertNormal},
		Duration: model.FormatDuration(0),
		Status:   c.status,
	}
	r := c.current
	if r == nil {
		return snap
	}
	snap.Session = r.session
	snap.Duration = model.FormatDuration(time.Since(*r.session.StartedAt))
	snap.FPS = r.fps.value
	snap.Settings = r.settings
	snap.Frame = r.frame
	snap.Dispatched = r.dispatched.Load()
	snap.Skipped = r.skipped.Load()
	return snap
}

// Close stops the Active session, aborts detection calls still in flight and
// waits for them to return.
func (c *Controller) Close() {
	c.lifecycle.Lock()
	c.mu.Lock()
	r := c.current
	c.mu.Unlock()
	if r != nil {
		c.halt(r)
	}
	c.cancel()
	c.lifecycle.Unlock()

	c.cycles.Wait()
}

// halt moves r to Idle, stops its loop and releases the camera. Caller holds
// lifecycle.
func (c *Controller) halt(r *run) {
	c.mu.Lock()
	r.session.State = model.SessionIdle
	if c.current == r {
		c.current = nil
	}
	count := r.session.AlertCount
	c.status = StatusStopped
	c.publish(model.EventSession, r.session.ID, model.Session{ID: r.session.ID, State: model.SessionIdle, Alert: model.AlertNormal})
	c.publish(model.EventAlertState, r.session.ID, model.AlertNormal)
	c.publish(model.EventStatus, r.session.ID, model.StatusData{Text: c.status})
	c.mu.Unlock()

	close(r.stop)
	<-r.done

	if err := r.camera.Close(); err != nil {
		c.logger.Warning("Session %s: %v", r.session.ID, err)
	}
	c.recorder.SessionStopped(r.session.ID, time.Now(), count)
	c.logger.Info("Session %s stopped after %d alert(s)", r.session.ID, count)
}

// loop owns the cadence ticker and the duration clock of one session.
func (c *Controller) loop(r *run, period time.Duration) {
	defer close(r.done)

	ticker := time.NewTicker(period)
	defer func() { ticker.Stop() }()
	clock := time.NewTicker(time.Second)
	defer clock.Stop()

	for {
		select {
		case <-r.stop:
			return
		case p := <-r.reconfig:
			ticker.Stop()
			ticker = time.NewTicker(p)
			c.mu.Lock()
			r.fps.reset(time.Now())
			c.mu.Unlock()
		case <-ticker.C:
			c.tick(r)
		case now := <-clock.C:
			c.mu.Lock()
			if c.current == r {
				c.publish(model.EventDuration, r.session.ID, model.FormatDuration(now.Sub(*r.session.StartedAt)))
			}
			c.mu.Unlock()
		}
	}
}

// tick starts one dispatch cycle unless the previous one is still in flight.
func (c *Controller) tick(r *run) {
	if !c.active(r) {
		return
	}
	if !r.inFlight.CompareAndSwap(false, true) {
		r.skipped.Add(1)
		return
	}

	sample, ok := r.camera.CaptureSample()
	if !ok {
		r.inFlight.Store(false)
		return
	}

	c.mu.Lock()
	if fps, closed := r.fps.record(sample.CapturedAt); closed && c.current == r {
		c.publish(model.EventFPS, r.session.ID, fps)
	}
	c.mu.Unlock()

	payload, ok := c.encoder.Encode(sample)
	if !ok {
		r.inFlight.Store(false)
		return
	}

	r.dispatched.Add(1)
	c.cycles.Add(1)
	go c.dispatch(r, payload)
}

func (c *Controller) dispatch(r *run, payload model.Payload) {
	defer c.cycles.Done()
	defer r.inFlight.Store(false)

	res, err := c.detector.Detect(c.ctx, payload, c.detectTimeout)
	c.apply(r, payload, res, err)
}

// apply records the outcome of a cycle. Outcomes of sessions that are no
// longer Active are dropped.
func (c *Controller) apply(r *run, payload model.Payload, res model.DetectionResult, err error) {
	c.mu.Lock()
	if c.current != r || r.session.State != model.SessionActive {
		c.mu.Unlock()
		c.logger.Info("Session %s: dropping result of a stopped session", r.session.ID)
		return
	}

	id := r.session.ID
	if err != nil {
		c.status = StatusText(err)
		c.publish(model.EventStatus, id, model.StatusData{Text: c.status, Transient: true})
		c.mu.Unlock()
		c.logger.Warning("Session %s: detection failed: %v", id, err)
		return
	}

	r.frame = res.AnnotatedImage
	if r.frame == "" {
		r.frame = payload.Image
	}
	c.publish(model.EventFrame, id, r.frame)

	var alerted bool
	if res.AlertTriggered {
		alerted = true
		r.session.Alert = model.AlertRaised
		r.session.AlertCount++
		c.status = StatusDrowsy
		c.publish(model.EventAlertState, id, r.session.Alert)
		c.publish(model.EventAlertCount, id, r.session.AlertCount)
		c.alerter.Alert(id, r.settings)
	} else {
		if r.session.Alert != model.AlertNormal {
			r.session.Alert = model.AlertNormal
			c.publish(model.EventAlertState, id, r.session.Alert)
		}
		c.status = StatusMonitoring
	}
	c.publish(model.EventStatus, id, model.StatusData{Text: c.status})
	frame := r.frame
	count := r.session.AlertCount
	c.mu.Unlock()

	if alerted {
		c.recorder.AlertRaised(id, time.Now(), frame)
		c.logger.Warning("Session %s: drowsiness detected (alert #%d)", id, count)
	}
}

func (c *Controller) active(r *run) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current == r && r.session.State == model.SessionActive
}

// publish sends an event. Caller holds mu.
func (c *Controller) publish(t model.EventType, sessionID string, data interface{}) {
	c.notifier.Publish(model.Event{Type: t, SessionID: sessionID, Time: time.Now(), Data: data})
}
