package webcam

import (
	"errors"
	"fmt"
	"image"
	"strconv"
	"strings"
	"sync"
	"time"

	"gocv.io/x/gocv"

	"drowsyguard/internal/logger"
	"drowsyguard/internal/model"
	"drowsyguard/internal/service/capture"
)

const (
	// IdealWidth and IdealHeight are requested from the device on open.
	IdealWidth  = 640
	IdealHeight = 480
	// IdealFPS is the frame rate requested from the device.
	IdealFPS = 30
	// MaxSampleWidth bounds sample width; wider frames are scaled down.
	MaxSampleWidth = 640
)

var errNotOpened = errors.New("device did not open")

// Source opens local video devices by index through OpenCV.
type Source struct {
	maxDevices int
	logger     *logger.Logger

	mu     sync.Mutex
	inUse  map[int]bool
	labels map[int]string
}

// NewSource creates a Source that scans device indices 0..maxDevices-1.
func NewSource(maxDevices int, log *logger.Logger) *Source {
	if log == nil {
		log = logger.Discard()
	}
	return &Source{
		maxDevices: maxDevices,
		logger:     log,
		inUse:      make(map[int]bool),
		labels:     make(map[int]string),
	}
}

// ListDevices tries every index and returns the devices that open. Devices held
// by an active session are reported without reopening.
func (s *Source) ListDevices() ([]model.Device, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	devices := make([]model.Device, 0, s.maxDevices)
	for idx := 0; idx < s.maxDevices; idx++ {
		if !s.inUse[idx] {
			vc, err := gocv.OpenVideoCapture(idx)
			if err != nil {
				continue
			}
			opened := vc.IsOpened()
			vc.Close()
			if !opened {
				continue
			}
		}
		devices = append(devices, model.Device{ID: strconv.Itoa(idx), Label: s.label(idx, len(devices))})
	}
	return devices, nil
}

// label returns the configured name of a device or "Camera N".
func (s *Source) label(idx, position int) string {
	if l, ok := s.labels[idx]; ok && l != "" {
		return l
	}
	return fmt.Sprintf("Camera %d", position+1)
}

// SetLabel names the device at idx for ListDevices.
func (s *Source) SetLabel(idx int, label string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.labels[idx] = label
}

// Open acquires a device. An empty deviceID selects index 0.
func (s *Source) Open(deviceID string) (capture.Camera, error) {
	idx := 0
	if deviceID != "" {
		parsed, err := strconv.Atoi(deviceID)
		if err != nil || parsed < 0 {
			return nil, &model.CameraError{Kind: model.CameraNotFound, DeviceID: deviceID, Err: fmt.Errorf("invalid device id")}
		}
		idx = parsed
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.inUse[idx] {
		return nil, &model.CameraError{Kind: model.CameraBusy, DeviceID: deviceID}
	}

	vc, err := gocv.OpenVideoCapture(idx)
	if err != nil {
		return nil, &model.CameraError{Kind: classify(err), DeviceID: deviceID, Err: err}
	}
	if !vc.IsOpened() {
		vc.Close()
		return nil, &model.CameraError{Kind: model.CameraBusy, DeviceID: deviceID, Err: errNotOpened}
	}

	vc.Set(gocv.VideoCaptureFrameWidth, IdealWidth)
	vc.Set(gocv.VideoCaptureFrameHeight, IdealHeight)
	vc.Set(gocv.VideoCaptureFPS, IdealFPS)

	s.inUse[idx] = true
	s.logger.Info("Camera %d opened", idx)

	return &camera{
		source: s,
		index:  idx,
		vc:     vc,
		frame:  gocv.NewMat(),
		scaled: gocv.NewMat(),
	}, nil
}

func (s *Source) release(idx int) {
	s.mu.Lock()
	delete(s.inUse, idx)
	s.mu.Unlock()
}

// classify maps an OpenCV open failure to a camera error kind.
func classify(err error) model.CameraErrorKind {
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "permission"), strings.Contains(msg, "denied"):
		return model.CameraPermissionDenied
	case strings.Contains(msg, "busy"):
		return model.CameraBusy
	}
	return model.CameraNotFound
}

type camera struct {
	source *Source
	index  int

	mu     sync.Mutex
	vc     *gocv.VideoCapture
	frame  gocv.Mat
	scaled gocv.Mat
	closed bool
}

// CaptureSample reads the next frame. It returns false until the feed reports
// its first non-empty frame.
func (c *camera) CaptureSample() (model.Sample, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return model.Sample{}, false
	}
	if ok := c.vc.Read(&c.frame); !ok || c.frame.Empty() {
		return model.Sample{}, false
	}

	out := c.frame
	if c.frame.Cols() > MaxSampleWidth {
		scale := float64(MaxSampleWidth) / float64(c.frame.Cols())
		if err := gocv.Resize(c.frame, &c.scaled, image.Point{}, scale, scale, gocv.InterpolationLinear); err != nil {
			return model.Sample{}, false
		}
		out = c.scaled
	}

	return model.Sample{
		Data:       out.ToBytes(),
		Width:      out.Cols(),
		Height:     out.Rows(),
		Type:       int(out.Type()),
		CapturedAt: time.Now(),
	}, true
}

// Close stops the device and frees the frame buffers.
func (c *camera) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true

	err := c.vc.Close()
	c.frame.Close()
	c.scaled.Close()
	c.source.release(c.index)
	c.source.logger.Info("Camera %d released", c.index)
	if err != nil {
		return fmt.Errorf("failed to close camera %d: %w", c.index, err)
	}
	return nil
}
