package session

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"drowsyguard/internal/model"
	"drowsyguard/internal/service/capture"
)

type fakeCamera struct {
	mu       sync.Mutex
	noSample bool
	captures int
	closes   int
}

func (f *fakeCamera) CaptureSample() (model.Sample, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.captures++
	if f.noSample {
		return model.Sample{}, false
	}
	return model.Sample{Data: []byte{1, 2, 3}, Width: 1, Height: 1, Type: 16, CapturedAt: time.Now()}, true
}

func (f *fakeCamera) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closes++
	return nil
}

func (f *fakeCamera) stats() (captures, closes int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.captures, f.closes
}

type fakeSource struct {
	mu       sync.Mutex
	noSample bool
	openErr  error
	opened   []*fakeCamera
	devices  []string
}

func (s *fakeSource) Open(deviceID string) (capture.Camera, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.openErr != nil {
		return nil, s.openErr
	}
	cam := &fakeCamera{noSample: s.noSample}
	s.opened = append(s.opened, cam)
	s.devices = append(s.devices, deviceID)
	return cam, nil
}

func (s *fakeSource) ListDevices() ([]model.Device, error) {
	return []model.Device{{ID: "0", Label: "Camera 1"}}, nil
}

func (s *fakeSource) camera(i int) *fakeCamera {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.opened[i]
}

func (s *fakeSource) openCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.opened)
}

type fakeEncoder struct {
	calls atomic.Int32
}

func (e *fakeEncoder) Encode(sample model.Sample) (model.Payload, bool) {
	e.calls.Add(1)
	return model.Payload{Image: model.JPEGDataURLPrefix + "cmF3", CapturedAt: sample.CapturedAt}, true
}

// fakeDetector emulates the bounded wait of the real client: respond gets a
// context that expires after the controller's timeout.
type fakeDetector struct {
	calls     atomic.Int32
	active    atomic.Int32
	maxActive atomic.Int32
	returned  atomic.Int32
	respond   func(ctx context.Context, n int32) (model.DetectionResult, error)
}

func (d *fakeDetector) Detect(ctx context.Context, _ model.Payload, timeout time.Duration) (model.DetectionResult, error) {
	n := d.calls.Add(1)
	cur := d.active.Add(1)
	defer d.returned.Add(1)
	defer d.active.Add(-1)
	for {
		m := d.maxActive.Load()
		if cur <= m || d.maxActive.CompareAndSwap(m, cur) {
			break
		}
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if d.respond == nil {
		return model.DetectionResult{}, nil
	}
	return d.respond(ctx, n)
}

// wait blocks for delay, or fails the way the client does when ctx expires.
func wait(ctx context.Context, delay time.Duration) error {
	select {
	case <-time.After(delay):
		return nil
	case <-ctx.Done():
		return &model.DetectionError{Kind: model.DetectionTimeout, Err: ctx.Err()}
	}
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []model.Event
}

func (n *recordingNotifier) Publish(e model.Event) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, e)
}

func (n *recordingNotifier) ofType(t model.EventType) []model.Event {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []model.Event
	for _, e := range n.events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

func (n *recordingNotifier) statuses() []string {
	var out []string
	for _, e := range n.ofType(model.EventStatus) {
		out = append(out, e.Data.(model.StatusData).Text)
	}
	return out
}

type recordingAlerter struct {
	mu     sync.Mutex
	alerts []model.Settings
}

func (a *recordingAlerter) Alert(_ string, s model.Settings) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.alerts = append(a.alerts, s)
}

func (a *recordingAlerter) count() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.alerts)
}

type recordingRecorder struct {
	mu      sync.Mutex
	started []string
	alerts  []string
	stopped map[string]int
}

func (r *recordingRecorder) SessionStarted(s model.Session, _ string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.started = append(r.started, s.ID)
}

func (r *recordingRecorder) AlertRaised(_ string, _ time.Time, image string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.alerts = append(r.alerts, image)
}

func (r *recordingRecorder) SessionStopped(id string, _ time.Time, count int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.stopped == nil {
		r.stopped = make(map[string]int)
	}
	r.stopped[id] = count
}

func (r *recordingRecorder) alertImages() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.alerts...)
}

type harness struct {
	ctrl     *Controller
	source   *fakeSource
	encoder  *fakeEncoder
	detector *fakeDetector
	notifier *recordingNotifier
	alerter  *recordingAlerter
	recorder *recordingRecorder
}

func newHarness(detector *fakeDetector, timeout time.Duration) *harness {
	h := &harness{
		source:   &fakeSource{},
		encoder:  &fakeEncoder{},
		detector: detector,
		notifier: &recordingNotifier{},
		alerter:  &recordingAlerter{},
		recorder: &recordingRecorder{},
	}
	h.ctrl = NewController(Options{
		Source:        h.source,
		Encoder:       h.encoder,
		Detector:      h.detector,
		Notifier:      h.notifier,
		Alerter:       h.alerter,
		Recorder:      h.recorder,
		DetectTimeout: timeout,
	})
	return h
}

func settingsAt(hz float64) model.Settings {
	s := model.DefaultSettings()
	s.CadenceHz = hz
	return s
}
