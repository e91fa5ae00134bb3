package integration

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/oshokin/catpoint/internal/config"
	domain "github.com/oshokin/catpoint/internal/domain/security"
)

// TestGRPC_IntrusionPersistsAcrossRestart trips a sensor, restarts the server and reads the state back.
func TestGRPC_IntrusionPersistsAcrossRestart(t *testing.T) {
	t.Parallel()

	settings := testSettings(t)
	settings.Image.FakeResult = config.FakeResultNoCat

	stop := startServer(t, settings)
	ctx := context.Background()
	c := dial(t, settings.ServerAddress)

	door := domain.Sensor{Name: "front door", Type: domain.SensorTypeDoor}
	window := domain.Sensor{Name: "kitchen", Type: domain.SensorTypeWindow}

	require.NoError(t, c.AddSensor(ctx, door))
	require.NoError(t, c.AddSensor(ctx, window))

	snapshot, err := c.SetArmingStatus(ctx, domain.ArmedAway)
	require.NoError(t, err)
	require.Equal(t, domain.NoAlarm, snapshot.AlarmStatus)

	snapshot, err = c.ChangeSensor(ctx, door, true)
	require.NoError(t, err)
	require.Equal(t, domain.PendingAlarm, snapshot.AlarmStatus)

	snapshot, err = c.ChangeSensor(ctx, window, true)
	require.NoError(t, err)
	require.Equal(t, domain.Alarm, snapshot.AlarmStatus)

	_, err = os.Stat(settings.Storage.Path)
	require.NoError(t, err)

	stop()

	startServer(t, settings)
	c = dial(t, settings.ServerAddress)

	snapshot, err = c.GetStatus(ctx)
	require.NoError(t, err)
	require.Equal(t, domain.Alarm, snapshot.AlarmStatus)
	require.Equal(t, domain.ArmedAway, snapshot.ArmingStatus)
	require.False(t, snapshot.CatDetected)
	require.Len(t, snapshot.Sensors, 2)

	// Alarm is sticky while armed.
	snapshot, err = c.ChangeSensor(ctx, door, false)
	require.NoError(t, err)
	require.Equal(t, domain.Alarm, snapshot.AlarmStatus)

	snapshot, err = c.SetArmingStatus(ctx, domain.Disarmed)
	require.NoError(t, err)
	require.Equal(t, domain.NoAlarm, snapshot.AlarmStatus)

	// File storage keeps no history.
	_, err = c.AlarmHistory(ctx, 0)
	require.Equal(t, codes.Unimplemented, status.Code(err))
}

// TestGRPC_CatWhileArmedHome raises the alarm from a camera image on SQLite storage,
// and exposes it over HTTP.
func TestGRPC_CatWhileArmedHome(t *testing.T) {
	t.Parallel()

	settings := testSettings(t)
	settings.HTTPAddress = reservePort(t)
	settings.Image.FakeResult = config.FakeResultCat
	settings.Storage = config.StorageConfig{
		Driver: config.DriverSQLite,
		Path:   filepath.Join(t.TempDir(), "catpoint.db"),
	}

	startServer(t, settings)

	ctx := context.Background()
	c := dial(t, settings.ServerAddress)

	_, err := c.SetArmingStatus(ctx, domain.ArmedHome)
	require.NoError(t, err)

	snapshot, err := c.ProcessImage(ctx, []byte("jpeg"))
	require.NoError(t, err)
	require.True(t, snapshot.CatDetected)
	require.Equal(t, domain.Alarm, snapshot.AlarmStatus)

	var current map[string]any
	require.NoError(t, json.Unmarshal([]byte(httpGet(t, "http://"+settings.HTTPAddress+"/v1/status")), &current))
	require.Equal(t, "ALARM", current["alarm_status"])
	require.Equal(t, "ARMED_HOME", current["arming_status"])
	require.Equal(t, true, current["cat_detected"])

	metrics := httpGet(t, "http://"+settings.HTTPAddress+"/metrics")
	require.Contains(t, metrics, "catpoint_alarm_status 3")
	require.Contains(t, metrics, `catpoint_images_analyzed_total{cat="true"} 1`)

	require.JSONEq(t, `{"status":"ok"}`, httpGet(t, "http://"+settings.HTTPAddress+"/healthz"))

	history, err := c.AlarmHistory(ctx, 0)
	require.NoError(t, err)
	require.NotEmpty(t, history)
	require.Equal(t, domain.Alarm, history[0].Status)

	var changes []map[string]any
	require.NoError(t, json.Unmarshal([]byte(httpGet(t, "http://"+settings.HTTPAddress+"/v1/alarm-history?limit=1")), &changes))
	require.Len(t, changes, 1)
	require.Equal(t, "ALARM", changes[0]["alarm_status"])
}

// TestGRPC_InvalidRequests maps bad input to InvalidArgument.
func TestGRPC_InvalidRequests(t *testing.T) {
	t.Parallel()

	settings := testSettings(t)
	settings.Storage = config.StorageConfig{Driver: config.DriverMemory}

	startServer(t, settings)

	ctx := context.Background()
	c := dial(t, settings.ServerAddress)

	err := c.AddSensor(ctx, domain.Sensor{Name: "", Type: domain.SensorTypeDoor})
	require.Equal(t, codes.InvalidArgument, status.Code(err))

	_, err = c.ProcessImage(ctx, nil)
	require.Equal(t, codes.InvalidArgument, status.Code(err))
}

func httpGet(t *testing.T, url string) string {
	t.Helper()

	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, url, nil)
	require.NoError(t, err)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)

	defer func() { _ = resp.Body.Close() }()

	require.Equal(t, http.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	return string(body)
}
