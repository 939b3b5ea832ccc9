package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"drowsyguard/internal/config"
	"drowsyguard/internal/dto"
	"drowsyguard/internal/logger"
	"drowsyguard/internal/model"
	"drowsyguard/internal/repository/sqlite"
	"drowsyguard/internal/service/capture"
	"drowsyguard/internal/service/session"
	"drowsyguard/internal/service/settings"
	hub "drowsyguard/internal/service/websocket"
)

type fakeController struct {
	started  []model.Settings
	stopped  []session.Handle
	startErr error
	active   bool
}

func (f *fakeController) Start(_ context.Context, s model.Settings) (session.Handle, error) {
	if f.startErr != nil {
		return session.Handle{}, f.startErr
	}
	f.started = append(f.started, s)
	f.active = true
	return session.Handle{SessionID: "s1"}, nil
}

func (f *fakeController) Stop(h session.Handle) {
	f.stopped = append(f.stopped, h)
	f.active = false
}

func (f *fakeController) Current() (session.Handle, bool) {
	return session.Handle{SessionID: "s1"}, f.active
}

func (f *fakeController) Snapshot() session.Snapshot {
	if f.active {
		return session.Snapshot{Session: model.Session{ID: "s1", State: model.SessionActive, Alert: model.AlertNormal}, Status: session.StatusMonitoring}
	}
	return session.Snapshot{Session: model.Session{State: model.SessionIdle, Alert: model.AlertNormal}}
}

type staticSource struct {
	devices []model.Device
}

func (s staticSource) Open(string) (capture.Camera, error)  { return nil, nil }
func (s staticSource) ListDevices() ([]model.Device, error) { return s.devices, nil }

func newStore() *settings.Store {
	return settings.NewStore(model.DefaultSettings(), nil, nil, logger.Discard())
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, sonic.Unmarshal(rec.Body.Bytes(), v))
}

// ========================================
// Session
// ========================================

func TestStartSessionHandler_UsesStoredSettings(t *testing.T) {
	ctrl := &fakeController{}
	store := newStore()

	rec := httptest.NewRecorder()
	StartSessionHandler(ctrl, store, logger.Discard())(rec, httptest.NewRequest(http.MethodPost, "/api/session/start", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, ctrl.started, 1)
	assert.Equal(t, model.DefaultSettings(), ctrl.started[0])

	var snap session.Snapshot
	decode(t, rec, &snap)
	assert.Equal(t, model.SessionActive, snap.Session.State)
}

func TestStartSessionHandler_DeviceOverride(t *testing.T) {
	ctrl := &fakeController{}
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/session/start", strings.NewReader(`{"deviceId":"2"}`))
	StartSessionHandler(ctrl, newStore(), logger.Discard())(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "2", ctrl.started[0].SelectedDeviceID)
}

func TestStartSessionHandler_MapsErrors(t *testing.T) {
	tests := []struct {
		err    error
		status int
		kind   string
	}{
		{&model.CameraError{Kind: model.CameraPermissionDenied}, http.StatusForbidden, "permission_denied"},
		{&model.CameraError{Kind: model.CameraNotFound}, http.StatusNotFound, "not_found"},
		{&model.CameraError{Kind: model.CameraBusy}, http.StatusConflict, "busy"},
		{model.ErrUnauthorized, http.StatusUnauthorized, ""},
		{model.ErrInvalidSettings, http.StatusBadRequest, ""},
	}
	for _, tt := range tests {
		rec := httptest.NewRecorder()
		StartSessionHandler(&fakeController{startErr: tt.err}, newStore(), logger.Discard())(rec, httptest.NewRequest(http.MethodPost, "/", nil))

		assert.Equal(t, tt.status, rec.Code, tt.err.Error())
		var resp dto.ErrorResponse
		decode(t, rec, &resp)
		assert.Equal(t, tt.kind, resp.Kind)
	}
}

func TestStopSessionHandler(t *testing.T) {
	ctrl := &fakeController{active: true}

	rec := httptest.NewRecorder()
	StopSessionHandler(ctrl, logger.Discard())(rec, httptest.NewRequest(http.MethodPost, "/", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []session.Handle{{SessionID: "s1"}}, ctrl.stopped)

	// idle: nothing to stop
	rec = httptest.NewRecorder()
	StopSessionHandler(ctrl, logger.Discard())(rec, httptest.NewRequest(http.MethodPost, "/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, ctrl.stopped, 1)
}

func TestSessionHandlers_RejectWrongMethod(t *testing.T) {
	rec := httptest.NewRecorder()
	StartSessionHandler(&fakeController{}, newStore(), logger.Discard())(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)

	rec = httptest.NewRecorder()
	SessionStatusHandler(&fakeController{}, logger.Discard())(rec, httptest.NewRequest(http.MethodPost, "/", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

// ========================================
// Settings and devices
// ========================================

func TestSettingsHandler_PartialUpdate(t *testing.T) {
	store := newStore()
	h := SettingsHandler(store, logger.Discard())

	rec := httptest.NewRecorder()
	h(rec, httptest.NewRequest(http.MethodPost, "/api/settings", strings.NewReader(`{"alertMode":"visual","cadenceHz":4}`)))
	require.Equal(t, http.StatusOK, rec.Code)

	got := store.Current()
	assert.Equal(t, model.AlertModeVisual, got.AlertMode)
	assert.Equal(t, 4.0, got.CadenceHz)
	assert.Equal(t, 5, got.Sensitivity)

	rec = httptest.NewRecorder()
	h(rec, httptest.NewRequest(http.MethodGet, "/api/settings", nil))
	var s model.Settings
	decode(t, rec, &s)
	assert.Equal(t, got, s)
}

func TestSettingsHandler_Invalid(t *testing.T) {
	store := newStore()
	for _, body := range []string{`{"alertVolume": 42}`, `{not json`} {
		rec := httptest.NewRecorder()
		SettingsHandler(store, logger.Discard())(rec, httptest.NewRequest(http.MethodPost, "/api/settings", strings.NewReader(body)))
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
	}
	assert.Equal(t, model.DefaultSettings(), store.Current())
}

func TestDevicesHandler(t *testing.T) {
	src := staticSource{devices: []model.Device{{ID: "0", Label: "Camera 1"}, {ID: "1", Label: "Camera 2"}}}

	rec := httptest.NewRecorder()
	DevicesHandler(src, newStore(), logger.Discard())(rec, httptest.NewRequest(http.MethodGet, "/api/devices", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var data dto.DevicesData
	decode(t, rec, &data)
	require.Len(t, data.Devices, 2)
	assert.True(t, data.Devices[0].IsDefault)
	assert.False(t, data.Devices[1].IsDefault)
}

func TestDevicesHandler_NoCameras(t *testing.T) {
	rec := httptest.NewRecorder()
	DevicesHandler(staticSource{}, newStore(), logger.Discard())(rec, httptest.NewRequest(http.MethodGet, "/api/devices", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"devices":[]`)
}

// ========================================
// Alerts journal
// ========================================

func TestAlertsHandlers(t *testing.T) {
	dir := t.TempDir()
	db, err := sqlite.New(filepath.Join(dir, "journal.db"))
	require.NoError(t, err)
	defer db.Close()

	cfg := &config.Config{ImageDirectory: filepath.Join(dir, "images")}
	require.NoError(t, os.MkdirAll(cfg.ImageDirectory, 0755))
	imgPath := filepath.Join(cfg.ImageDirectory, "snap.jpg")
	require.NoError(t, os.WriteFile(imgPath, []byte{0xFF, 0xD8, 0xFF, 0xD9}, 0644))

	require.NoError(t, sqlite.NewSessionRepository(db).Insert(&model.SessionRecord{ID: "s1", StartedAt: time.Now()}))
	alerts := sqlite.NewAlertRepository(db)
	require.NoError(t, alerts.InsertBatch([]model.AlertRecord{
		{SessionID: "s1", Timestamp: time.Now().Add(-time.Minute), Filename: "snap.jpg", FilePath: imgPath, FileSize: 4},
		{SessionID: "s1", Timestamp: time.Now()},
	}))

	rec := httptest.NewRecorder()
	GetAlertsHandler(cfg, logger.Discard(), alerts)(rec, httptest.NewRequest(http.MethodGet, "/api/alerts?limit=1", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var data dto.AlertsData
	decode(t, rec, &data)
	assert.Equal(t, 2, data.Length)
	assert.Equal(t, 2, data.TotalPages)
	require.Len(t, data.Alerts, 1)
	assert.False(t, data.Alerts[0].HasImage)
	assert.Equal(t, int64(4), data.Size)

	rec = httptest.NewRecorder()
	ViewAlertImageHandler(logger.Discard(), alerts)(rec, httptest.NewRequest(http.MethodGet, "/api/alerts/image?name=snap.jpg", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	for _, name := range []string{"", "../journal.db", "missing.jpg"} {
		rec = httptest.NewRecorder()
		ViewAlertImageHandler(logger.Discard(), alerts)(rec, httptest.NewRequest(http.MethodGet, "/api/alerts/image?name="+name, nil))
		assert.NotEqual(t, http.StatusOK, rec.Code, name)
	}

	rec = httptest.NewRecorder()
	ClearAlertsHandler(cfg, logger.Discard(), alerts)(rec, httptest.NewRequest(http.MethodPost, "/api/alerts/clear", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	_, err = os.Stat(imgPath)
	assert.True(t, os.IsNotExist(err))
	count, err := alerts.GetTotalCount(nil)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestIsValidFilename(t *testing.T) {
	for _, ok := range []string{"a.jpg", "2025-01-01_10-00-00.000_abcd_0.jpg"} {
		assert.True(t, isValidFilename(ok), ok)
	}
	for _, bad := range []string{"", "..", "../x.jpg", "/etc/passwd", "a/b.jpg", "a\\b.jpg", "x\x00.jpg"} {
		assert.False(t, isValidFilename(bad), bad)
	}
}

// ========================================
// Auth and events
// ========================================

func TestLoginLogout(t *testing.T) {
	cfg := &config.Config{Password: "secret"}

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader("password=wrong"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	LoginHandler(cfg, logger.Discard())(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader("password=secret"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	LoginHandler(cfg, logger.Discard())(rec, req)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "true", cookies[0].Value)

	rec = httptest.NewRecorder()
	LogoutHandler(rec, httptest.NewRequest(http.MethodGet, "/auth/logout", nil))
	assert.Equal(t, "/login", rec.Header().Get("Location"))
	assert.Equal(t, -1, rec.Result().Cookies()[0].MaxAge)
}

func TestEventsWebsocketHandler_SendsSnapshotThenEvents(t *testing.T) {
	events := hub.NewHubService(logger.Discard())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go events.Run(ctx)

	srv := httptest.NewServer(EventsWebsocketHandler(&fakeController{active: true}, events, logger.Discard()))
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	defer conn.Close()

	read := func() map[string]interface{} {
		conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		_, data, err := conn.ReadMessage()
		require.NoError(t, err)
		var out map[string]interface{}
		require.NoError(t, sonic.Unmarshal(data, &out))
		return out
	}

	first := read()
	assert.Equal(t, "snapshot", first["type"])
	assert.Equal(t, "s1", first["sessionId"])

	require.Eventually(t, func() bool { return events.GetClientCount() == 1 }, 2*time.Second, 5*time.Millisecond)
	events.Publish(model.Event{Type: model.EventDuration, SessionID: "s1", Time: time.Now(), Data: "00:00:07"})
	ev := read()
	assert.Equal(t, "duration", ev["type"])
	assert.Equal(t, "00:00:07", ev["data"])
}
