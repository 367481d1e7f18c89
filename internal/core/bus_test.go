package core

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func embeddedBusConfig(t *testing.T) BusConfig {
	return BusConfig{
		Enabled:  true,
		Embedded: true,
		DataDir:  t.TempDir(),
		Port:     -1,
	}
}

func newTestBus(t *testing.T) *EventBus {
	t.Helper()
	cfg := embeddedBusConfig(t)
	bus, err := NewEventBus(&cfg, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { bus.Close() })
	return bus
}

func TestEventBus_PublishEvent(t *testing.T) {
	bus := newTestBus(t)
	require.True(t, bus.IsConnected())

	sub, err := bus.nc.SubscribeSync(subjectEvents + ".>")
	require.NoError(t, err)

	ev := testEvent("ev-1", "alice.jones@example.com", ActionFileAccess, map[string]string{DetailApp: "Box"})
	require.NoError(t, bus.PublishEvent(ev))

	msg, err := sub.NextMsg(5 * time.Second)
	require.NoError(t, err)
	assert.Equal(t, "casb.events.file_access", msg.Subject)

	got, err := UnmarshalActivityEvent(msg.Data)
	require.NoError(t, err)
	assert.Equal(t, "ev-1", got.ID)
	assert.Equal(t, "Box", got.Detail(DetailApp))
}

func TestEventBus_PublishThreatPersists(t *testing.T) {
	bus := newTestBus(t)

	require.NoError(t, bus.PublishThreat(sampleThreat()))

	info, err := bus.js.StreamInfo("CASB_THREATS")
	require.NoError(t, err)
	assert.Equal(t, uint64(1), info.State.Msgs)
}

func TestEventBus_SubscribeToIngest(t *testing.T) {
	bus := newTestBus(t)

	received := make(chan ActivityEvent, 2)
	require.NoError(t, bus.SubscribeToIngest(func(ev ActivityEvent) { received <- ev }))

	ev := testEvent("ext-1", "bob.smith@example.com", ActionLogin, map[string]string{DetailLocation: "Austin, USA"})
	data, err := ev.Marshal()
	require.NoError(t, err)

	require.NoError(t, bus.nc.Publish(subjectIngest+".okta", []byte("not json")))
	require.NoError(t, bus.nc.Publish(subjectIngest+".okta", data))
	require.NoError(t, bus.nc.Flush())

	select {
	case got := <-received:
		assert.Equal(t, "ext-1", got.ID)
	case <-time.After(5 * time.Second):
		t.Fatal("ingested event not delivered")
	}
	assert.Empty(t, received, "undecodable message must be dropped")
}

func TestEventBus_IsConnected_Nil(t *testing.T) {
	var bus *EventBus
	assert.False(t, bus.IsConnected())
}

func TestSubjectToken(t *testing.T) {
	tests := map[string]string{
		"Unusual Login Location": "unusual_login_location",
		"File Upload":            "file_upload",
		"a.b*c>":                 "a_b_c_",
		"  ":                     "unknown",
	}
	for in, want := range tests {
		if got := subjectToken(in); got != want {
			t.Errorf("subjectToken(%q) = %q, want %q", in, got, want)
		}
	}
}

// ─── Engine over the bus ─────────────────────────────────────────────────────

func TestEngine_BusFanOutAndIngest(t *testing.T) {
	cfg := testConfig(true)
	cfg.Bus = embeddedBusConfig(t)
	_, factory := newManualTicker()
	e := newTestEngine(t, cfg, WithTickerFactory(factory))
	require.NoError(t, e.Start())
	defer e.Shutdown()
	require.True(t, e.Bus.IsConnected())

	threats, err := e.Bus.nc.SubscribeSync(subjectThreats + ".>")
	require.NoError(t, err)

	e.SimulateAnomaly()

	msg, err := threats.NextMsg(5 * time.Second)
	require.NoError(t, err)
	assert.Equal(t, "casb.threats.unusual_login_location", msg.Subject)

	// External producers publish on casb.ingest.<source>.
	before := e.Events.Len()
	ext := ActivityEvent{User: "charlie.brown@example.com", Action: ActionLogin,
		Details: map[string]string{DetailIP: "9.9.9.9", DetailLocation: "Oslo, Norway"}}
	data, err := ext.Marshal()
	require.NoError(t, err)
	require.NoError(t, e.Bus.nc.Publish(subjectIngest+".idp", data))

	require.Eventually(t, func() bool { return e.Events.Len() == before+1 }, 5*time.Second, 10*time.Millisecond)
	require.Eventually(t, func() bool { return e.Threats.Count() == 4 }, 5*time.Second, 10*time.Millisecond)

	invalid, _ := (ActivityEvent{Action: ActionLogin}).Marshal()
	require.NoError(t, e.Bus.nc.Publish(subjectIngest+".idp", invalid))
	require.NoError(t, e.Bus.nc.Flush())
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, before+1, e.Events.Len(), "events without a user are dropped")
}
