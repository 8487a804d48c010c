package engine

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fzracing/fz/common"
	"github.com/fzracing/fz/wire"
)

// fakePlugin scripts lifecycle responses so session behavior can be
// tested without a wasm artifact.
type fakePlugin struct {
	initFn     func(wire.InitRequest) wire.InitResponse
	dispatchFn func(wire.DispatchRequest) wire.DispatchResponse
	closed     bool
}

func (f *fakePlugin) Manifest(context.Context) (wire.Manifest, error) {
	return wire.Manifest{Name: "fake", Version: "0.0.0", SDKVersion: "1.0.0"}, nil
}

func (f *fakePlugin) Init(_ context.Context, req wire.InitRequest) (wire.InitResponse, error) {
	if f.initFn == nil {
		return wire.InitResponse{}, nil
	}
	return f.initFn(req), nil
}

func (f *fakePlugin) Dispatch(_ context.Context, req wire.DispatchRequest) (wire.DispatchResponse, error) {
	if f.dispatchFn == nil {
		return wire.DispatchResponse{}, nil
	}
	return f.dispatchFn(req), nil
}

func (f *fakePlugin) Close(context.Context) error {
	f.closed = true
	return nil
}

func factoryOf(plugins ...*fakePlugin) PluginFactory {
	i := 0
	return func(context.Context) (Plugin, error) {
		p := plugins[i]
		i++
		return p, nil
	}
}

func mustRaw(t *testing.T, v any) json.RawMessage {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return data
}

func TestSession_InitSeedsServerWorld(t *testing.T) {
	server := &fakePlugin{
		initFn: func(req wire.InitRequest) wire.InitResponse {
			return wire.InitResponse{
				Commands: []wire.Command{
					{Kind: wire.CmdCreateEntity, Entity: "track"},
					{Kind: wire.CmdAddComponent, Entity: "track", Component: &wire.ComponentData{
						ID: common.SynchronizedID, Data: []byte(`{}`),
					}},
				},
			}
		},
	}

	s, err := NewSession(context.Background(), factoryOf(server))
	require.NoError(t, err)
	defer s.Close(context.Background())

	assert.Equal(t, "fake", s.PluginName())
	assert.True(t, s.ServerWorld().Exists("track"))
}

func TestSession_InitErrorFailsConstruction(t *testing.T) {
	server := &fakePlugin{
		initFn: func(wire.InitRequest) wire.InitResponse {
			return wire.InitResponse{Error: &wire.ErrorDetail{Type: "config", Message: "bad laps"}}
		},
	}

	_, err := NewSession(context.Background(), factoryOf(server))
	require.ErrorContains(t, err, "bad laps")
	assert.True(t, server.closed)
}

func TestSession_ModesPassedToInit(t *testing.T) {
	var modes []wire.Mode
	var clientIDs []*wire.ClientID
	record := func(req wire.InitRequest) wire.InitResponse {
		modes = append(modes, req.Mode)
		clientIDs = append(clientIDs, req.Client)
		return wire.InitResponse{}
	}

	s, err := NewSession(context.Background(),
		factoryOf(&fakePlugin{initFn: record}, &fakePlugin{initFn: record}))
	require.NoError(t, err)
	defer s.Close(context.Background())

	id, err := s.AddClient(context.Background())
	require.NoError(t, err)

	require.Equal(t, []wire.Mode{wire.ModeServer, wire.ModeClient}, modes)
	require.Nil(t, clientIDs[0])
	require.NotNil(t, clientIDs[1])
	assert.Equal(t, id, *clientIDs[1])
}

func TestSession_FrameTimeDeliveredEachTick(t *testing.T) {
	var frames []common.FrameTime
	server := &fakePlugin{
		initFn: func(wire.InitRequest) wire.InitResponse {
			return wire.InitResponse{Schedule: wire.Schedule{Systems: []wire.SystemSpec{{
				Name:          "clock",
				Stage:         wire.StageUpdate,
				Subscriptions: []string{common.FrameTimeID},
			}}}}
		},
		dispatchFn: func(req wire.DispatchRequest) wire.DispatchResponse {
			for _, msg := range req.Messages {
				var ft common.FrameTime
				require.NoError(t, json.Unmarshal(msg.Data, &ft))
				frames = append(frames, ft)
			}
			return wire.DispatchResponse{}
		},
	}

	s, err := NewSession(context.Background(), factoryOf(server))
	require.NoError(t, err)
	defer s.Close(context.Background())

	require.NoError(t, s.Tick(context.Background(), 0.5))
	require.NoError(t, s.Tick(context.Background(), 0.5))

	require.Len(t, frames, 2)
	assert.InDelta(t, 0.5, frames[0].Time, 1e-6)
	assert.InDelta(t, 1.0, frames[1].Time, 1e-6)
	assert.InDelta(t, 0.5, frames[1].Delta, 1e-6)
}

func TestSession_MessagesDeliveredNextTick(t *testing.T) {
	var received [][]wire.MessageData
	server := &fakePlugin{
		initFn: func(wire.InitRequest) wire.InitResponse {
			return wire.InitResponse{Schedule: wire.Schedule{Systems: []wire.SystemSpec{{
				Name:          "echo",
				Stage:         wire.StageUpdate,
				Subscriptions: []string{"test.ping"},
			}}}}
		},
		dispatchFn: func(req wire.DispatchRequest) wire.DispatchResponse {
			received = append(received, req.Messages)
			if req.Tick == 1 {
				return wire.DispatchResponse{Messages: []wire.MessageData{{
					ID:          "test.ping",
					Destination: wire.Destination{Kind: wire.DestLocal},
					Data:        []byte(`{"n":1}`),
				}}}
			}
			return wire.DispatchResponse{}
		},
	}

	s, err := NewSession(context.Background(), factoryOf(server))
	require.NoError(t, err)
	defer s.Close(context.Background())

	require.NoError(t, s.Tick(context.Background(), 0.1))
	require.NoError(t, s.Tick(context.Background(), 0.1))
	require.NoError(t, s.Tick(context.Background(), 0.1))

	require.Len(t, received, 3)
	assert.Empty(t, received[0], "nothing sent before tick 1")
	require.Len(t, received[1], 1, "tick 1 send arrives at tick 2")
	assert.JSONEq(t, `{"n":1}`, string(received[1][0].Data))
	assert.Empty(t, received[2], "messages are not redelivered")
}

func TestSession_RemoteRoutingTagsSender(t *testing.T) {
	var serverGot []wire.MessageData
	var clientGot []wire.MessageData

	server := &fakePlugin{
		initFn: func(wire.InitRequest) wire.InitResponse {
			return wire.InitResponse{Schedule: wire.Schedule{Systems: []wire.SystemSpec{{
				Name: "relay", Stage: wire.StageUpdate, Subscriptions: []string{"fz.ship"},
			}}}}
		},
		dispatchFn: func(req wire.DispatchRequest) wire.DispatchResponse {
			serverGot = append(serverGot, req.Messages...)
			var out []wire.MessageData
			for range req.Messages {
				out = append(out, wire.MessageData{
					ID:          "fz.ship",
					Destination: wire.Destination{Kind: wire.DestRemote},
					Data:        []byte(`{"from":"server"}`),
				})
			}
			return wire.DispatchResponse{Messages: out}
		},
	}
	client := &fakePlugin{
		initFn: func(wire.InitRequest) wire.InitResponse {
			return wire.InitResponse{Schedule: wire.Schedule{Systems: []wire.SystemSpec{{
				Name: "ship", Stage: wire.StageUpdate, Subscriptions: []string{"fz.ship"},
			}}}}
		},
		dispatchFn: func(req wire.DispatchRequest) wire.DispatchResponse {
			clientGot = append(clientGot, req.Messages...)
			if req.Tick == 1 {
				return wire.DispatchResponse{Messages: []wire.MessageData{{
					ID:          "fz.ship",
					Destination: wire.Destination{Kind: wire.DestRemote},
					Data:        []byte(`{"from":"client"}`),
				}}}
			}
			return wire.DispatchResponse{}
		},
	}

	s, err := NewSession(context.Background(), factoryOf(server, client))
	require.NoError(t, err)
	defer s.Close(context.Background())

	clientID, err := s.AddClient(context.Background())
	require.NoError(t, err)

	// Tick 1: client sends remote. Tick 2: server receives it tagged with
	// the sender and broadcasts back. Tick 3: client receives.
	require.NoError(t, s.Tick(context.Background(), 0.1))
	require.NoError(t, s.Tick(context.Background(), 0.1))
	require.NoError(t, s.Tick(context.Background(), 0.1))

	require.Len(t, serverGot, 1)
	require.NotNil(t, serverGot[0].Sender)
	assert.Equal(t, clientID, *serverGot[0].Sender)

	require.Len(t, clientGot, 1)
	assert.JSONEq(t, `{"from":"server"}`, string(clientGot[0].Data))
	assert.Nil(t, clientGot[0].Sender)
}

func TestSession_ConnectionsAnnouncedToServer(t *testing.T) {
	var rosters []common.Connections
	server := &fakePlugin{
		initFn: func(wire.InitRequest) wire.InitResponse {
			return wire.InitResponse{Schedule: wire.Schedule{Systems: []wire.SystemSpec{{
				Name: "conn", Stage: wire.StagePreUpdate, Subscriptions: []string{common.ConnectionsID},
			}}}}
		},
		dispatchFn: func(req wire.DispatchRequest) wire.DispatchResponse {
			for _, msg := range req.Messages {
				var conns common.Connections
				require.NoError(t, json.Unmarshal(msg.Data, &conns))
				rosters = append(rosters, conns)
			}
			return wire.DispatchResponse{}
		},
	}

	s, err := NewSession(context.Background(), factoryOf(server, &fakePlugin{}, &fakePlugin{}))
	require.NoError(t, err)
	defer s.Close(context.Background())

	a, err := s.AddClient(context.Background())
	require.NoError(t, err)
	require.NoError(t, s.Tick(context.Background(), 0.1))

	_, err = s.AddClient(context.Background())
	require.NoError(t, err)
	require.NoError(t, s.RemoveClient(context.Background(), a))
	require.NoError(t, s.Tick(context.Background(), 0.1))

	require.Len(t, rosters, 3)
	assert.Len(t, rosters[0].Clients, 1)
	assert.Len(t, rosters[1].Clients, 2)
	assert.Len(t, rosters[2].Clients, 1)
}

func TestSession_SynchronizedMirroring(t *testing.T) {
	shipData := mustRaw(t, map[string]float64{"x": 1})
	server := &fakePlugin{
		initFn: func(wire.InitRequest) wire.InitResponse {
			return wire.InitResponse{Schedule: wire.Schedule{Systems: []wire.SystemSpec{{
				Name: "spawn", Stage: wire.StageUpdate,
			}}}}
		},
		dispatchFn: func(req wire.DispatchRequest) wire.DispatchResponse {
			if req.Tick == 1 {
				return wire.DispatchResponse{Commands: []wire.Command{
					{Kind: wire.CmdCreateEntity, Entity: "ship"},
					{Kind: wire.CmdAddComponent, Entity: "ship", Component: &wire.ComponentData{ID: common.SynchronizedID, Data: []byte(`{}`)}},
					{Kind: wire.CmdAddComponent, Entity: "ship", Component: &wire.ComponentData{ID: "fz.ship", Data: shipData}},
				}}
			}
			if req.Tick == 3 {
				return wire.DispatchResponse{Commands: []wire.Command{
					{Kind: wire.CmdRemoveEntity, Entity: "ship"},
				}}
			}
			return wire.DispatchResponse{}
		},
	}

	s, err := NewSession(context.Background(), factoryOf(server, &fakePlugin{}))
	require.NoError(t, err)
	defer s.Close(context.Background())

	clientID, err := s.AddClient(context.Background())
	require.NoError(t, err)
	clientWorld, ok := s.ClientWorld(clientID)
	require.True(t, ok)

	require.NoError(t, s.Tick(context.Background(), 0.1))
	require.True(t, clientWorld.Exists("ship"), "synchronized entity mirrored after tick")
	data, ok := clientWorld.Component("ship", "fz.ship")
	require.True(t, ok)
	assert.JSONEq(t, string(shipData), string(data))

	require.NoError(t, s.Tick(context.Background(), 0.1))
	require.NoError(t, s.Tick(context.Background(), 0.1))
	assert.False(t, clientWorld.Exists("ship"), "removed entity evicted from client world")
}

func TestSession_LateJoinerSeesSynchronizedEntities(t *testing.T) {
	server := &fakePlugin{
		initFn: func(wire.InitRequest) wire.InitResponse {
			return wire.InitResponse{Commands: []wire.Command{
				{Kind: wire.CmdCreateEntity, Entity: "track"},
				{Kind: wire.CmdAddComponent, Entity: "track", Component: &wire.ComponentData{ID: common.SynchronizedID, Data: []byte(`{}`)}},
			}}
		},
	}

	s, err := NewSession(context.Background(), factoryOf(server, &fakePlugin{}))
	require.NoError(t, err)
	defer s.Close(context.Background())

	clientID, err := s.AddClient(context.Background())
	require.NoError(t, err)

	clientWorld, ok := s.ClientWorld(clientID)
	require.True(t, ok)
	assert.True(t, clientWorld.Exists("track"))
}

func TestSession_SystemErrorIsIsolated(t *testing.T) {
	ticked := 0
	server := &fakePlugin{
		initFn: func(wire.InitRequest) wire.InitResponse {
			return wire.InitResponse{Schedule: wire.Schedule{Systems: []wire.SystemSpec{
				{Name: "broken", Stage: wire.StagePreUpdate},
				{Name: "healthy", Stage: wire.StageUpdate},
			}}}
		},
		dispatchFn: func(req wire.DispatchRequest) wire.DispatchResponse {
			if req.System == "broken" {
				return wire.DispatchResponse{Error: &wire.ErrorDetail{Type: "panic", Message: "boom"}}
			}
			ticked++
			return wire.DispatchResponse{}
		},
	}

	s, err := NewSession(context.Background(), factoryOf(server))
	require.NoError(t, err)
	defer s.Close(context.Background())

	require.NoError(t, s.Tick(context.Background(), 0.1))
	assert.Equal(t, 1, ticked, "healthy system still runs after broken one fails")
}

func TestSession_MaxClients(t *testing.T) {
	s, err := NewSession(context.Background(),
		factoryOf(&fakePlugin{}, &fakePlugin{}),
		WithMaxClients(1))
	require.NoError(t, err)
	defer s.Close(context.Background())

	_, err = s.AddClient(context.Background())
	require.NoError(t, err)
	_, err = s.AddClient(context.Background())
	assert.ErrorContains(t, err, "session full")
}

func TestSession_CloseShutsDownAllInstances(t *testing.T) {
	server := &fakePlugin{}
	client := &fakePlugin{}
	s, err := NewSession(context.Background(), factoryOf(server, client))
	require.NoError(t, err)

	_, err = s.AddClient(context.Background())
	require.NoError(t, err)

	require.NoError(t, s.Close(context.Background()))
	assert.True(t, server.closed)
	assert.True(t, client.closed)
}

func TestSession_DispatchContextCarriesRequestMetadata(t *testing.T) {
	var contexts []wire.ContextWire
	server := &fakePlugin{
		initFn: func(req wire.InitRequest) wire.InitResponse {
			contexts = append(contexts, req.Context)
			return wire.InitResponse{Schedule: wire.Schedule{Systems: []wire.SystemSpec{{
				Name: "clock", Stage: wire.StageUpdate,
			}}}}
		},
		dispatchFn: func(req wire.DispatchRequest) wire.DispatchResponse {
			contexts = append(contexts, req.Context)
			return wire.DispatchResponse{}
		},
	}

	s, err := NewSession(context.Background(), factoryOf(server))
	require.NoError(t, err)
	defer s.Close(context.Background())

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	require.NoError(t, s.Tick(ctx, 0.1))
	require.NoError(t, s.Tick(ctx, 0.1))

	require.Len(t, contexts, 3)
	for _, cw := range contexts {
		assert.Equal(t, "fake", cw.Plugin)
		assert.NotEmpty(t, cw.RequestID)
		assert.False(t, cw.Canceled)
	}
	assert.NotEqual(t, contexts[1].RequestID, contexts[2].RequestID,
		"each dispatch gets a fresh request id")

	require.NotNil(t, contexts[1].Deadline, "caller deadline propagates")
	assert.Positive(t, contexts[1].TimeoutMs)
	assert.Nil(t, contexts[0].Deadline, "no deadline on the init context")
}

func TestSession_DeliverReachesClientInbox(t *testing.T) {
	var received []wire.MessageData
	client := &fakePlugin{
		initFn: func(wire.InitRequest) wire.InitResponse {
			return wire.InitResponse{Schedule: wire.Schedule{Systems: []wire.SystemSpec{
				{Name: "input", Stage: wire.StageUpdate, Subscriptions: []string{common.InputEventID}},
			}}}
		},
		dispatchFn: func(req wire.DispatchRequest) wire.DispatchResponse {
			received = append(received, req.Messages...)
			return wire.DispatchResponse{}
		},
	}

	s, err := NewSession(context.Background(), factoryOf(&fakePlugin{}, client))
	require.NoError(t, err)
	defer s.Close(context.Background())

	id, err := s.AddClient(context.Background())
	require.NoError(t, err)

	msg := wire.MessageData{
		ID:          common.InputEventID,
		Destination: wire.Destination{Kind: wire.DestLocal},
		Data:        mustRaw(t, common.InputEvent{Key: common.KeyW, Pressed: true}),
	}
	require.NoError(t, s.Deliver(id, msg))
	require.NoError(t, s.Tick(context.Background(), 0.1))

	require.Len(t, received, 1)
	assert.Equal(t, common.InputEventID, received[0].ID)

	assert.ErrorContains(t, s.Deliver(99, msg), "unknown client")
}
