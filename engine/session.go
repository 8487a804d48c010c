package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/fzracing/fz/common"
	"github.com/fzracing/fz/engine/world"
	"github.com/fzracing/fz/wire"
)

// Session drives one plugin over a server world and any number of client
// worlds. Every member gets its own plugin instance so client and server
// state never share memory.
//
// The tick contract: messages sent during tick N are delivered at tick
// N+1; entities carrying the synchronized marker on the server are
// mirrored into every client world after each tick.
type Session struct {
	factory      PluginFactory
	logger       *slog.Logger
	pluginName   string
	pluginConfig json.RawMessage

	server     *member
	clients    map[wire.ClientID]*member
	order      []wire.ClientID
	nextClient wire.ClientID
	maxClients int

	synced  map[wire.EntityID]struct{}
	tick    uint64
	elapsed float64
}

type member struct {
	mode     wire.Mode
	id       wire.ClientID
	plugin   Plugin
	world    *world.World
	schedule wire.Schedule
	inbox    []wire.MessageData
	pending  []wire.MessageData
}

// SessionOption configures a Session.
type SessionOption func(*Session)

// WithSessionLogger sets the session's logger.
func WithSessionLogger(logger *slog.Logger) SessionOption {
	return func(s *Session) { s.logger = logger }
}

// WithPluginConfig passes config verbatim to every instance's init call.
func WithPluginConfig(config json.RawMessage) SessionOption {
	return func(s *Session) { s.pluginConfig = config }
}

// WithMaxClients bounds how many clients the session accepts.
func WithMaxClients(n int) SessionOption {
	return func(s *Session) { s.maxClients = n }
}

// NewSession creates a session and initializes its server instance. The
// caller must Close it.
func NewSession(ctx context.Context, factory PluginFactory, opts ...SessionOption) (*Session, error) {
	s := &Session{
		factory:    factory,
		logger:     slog.Default(),
		clients:    make(map[wire.ClientID]*member),
		maxClients: 8,
		synced:     make(map[wire.EntityID]struct{}),
		nextClient: 1,
	}
	for _, opt := range opts {
		opt(s)
	}

	server, err := s.spawnMember(ctx, wire.ModeServer, 0)
	if err != nil {
		return nil, err
	}
	s.server = server
	return s, nil
}

// Close shuts down every plugin instance.
func (s *Session) Close(ctx context.Context) error {
	var firstErr error
	for _, id := range s.order {
		if err := s.clients[id].plugin.Close(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if s.server != nil {
		if err := s.server.plugin.Close(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// PluginName returns the name reported by the plugin manifest.
func (s *Session) PluginName() string { return s.pluginName }

// Tick returns the number of completed ticks.
func (s *Session) TickCount() uint64 { return s.tick }

// ServerWorld exposes the server's world for inspection.
func (s *Session) ServerWorld() *world.World { return s.server.world }

// ClientWorld exposes a client's world for inspection.
func (s *Session) ClientWorld(id wire.ClientID) (*world.World, bool) {
	c, ok := s.clients[id]
	if !ok {
		return nil, false
	}
	return c.world, true
}

// Clients returns connected client IDs in join order.
func (s *Session) Clients() []wire.ClientID {
	return slices.Clone(s.order)
}

// AddClient spins up a client instance, seeds its world with the server's
// synchronized entities, and announces the new connection roster.
func (s *Session) AddClient(ctx context.Context) (wire.ClientID, error) {
	if len(s.clients) >= s.maxClients {
		return 0, fmt.Errorf("session full: %d clients", s.maxClients)
	}

	id := s.nextClient
	s.nextClient++

	client, err := s.spawnMember(ctx, wire.ModeClient, id)
	if err != nil {
		return 0, err
	}
	s.clients[id] = client
	s.order = append(s.order, id)

	for _, entity := range s.server.world.Entities(common.SynchronizedID) {
		client.world.Mirror(entity, s.server.world.ComponentsOf(entity))
	}
	s.announceConnections()

	s.logger.Info("client joined", "client", id, "total", len(s.clients))
	return id, nil
}

// RemoveClient disconnects a client and announces the change.
func (s *Session) RemoveClient(ctx context.Context, id wire.ClientID) error {
	client, ok := s.clients[id]
	if !ok {
		return fmt.Errorf("unknown client %d", id)
	}
	delete(s.clients, id)
	s.order = slices.DeleteFunc(s.order, func(c wire.ClientID) bool { return c == id })
	s.announceConnections()

	s.logger.Info("client left", "client", id, "total", len(s.clients))
	return client.plugin.Close(ctx)
}

func (s *Session) spawnMember(ctx context.Context, mode wire.Mode, id wire.ClientID) (*member, error) {
	plugin, err := s.factory(ctx)
	if err != nil {
		return nil, fmt.Errorf("instantiating %s plugin: %w", mode, err)
	}

	if s.pluginName == "" {
		manifest, err := plugin.Manifest(ctx)
		if err != nil {
			plugin.Close(ctx)
			return nil, fmt.Errorf("reading manifest: %w", err)
		}
		s.pluginName = manifest.Name
	}

	req := wire.InitRequest{
		Mode:    mode,
		Config:  s.pluginConfig,
		Context: s.wireContext(ctx),
	}
	if mode == wire.ModeClient {
		req.Client = &id
	}

	resp, err := plugin.Init(ctx, req)
	if err != nil {
		plugin.Close(ctx)
		return nil, fmt.Errorf("initializing %s plugin: %w", mode, err)
	}
	if resp.Error != nil {
		plugin.Close(ctx)
		return nil, fmt.Errorf("plugin rejected init: %w", resp.Error)
	}

	m := &member{
		mode:     mode,
		id:       id,
		plugin:   plugin,
		world:    world.New(),
		schedule: resp.Schedule,
	}
	if err := m.world.Apply(resp.Commands); err != nil {
		plugin.Close(ctx)
		return nil, fmt.Errorf("applying init commands: %w", err)
	}
	s.route(m, resp.Messages)
	return m, nil
}

// Deliver queues a host-originated message, keyboard input for example,
// into a client's next-tick inbox.
func (s *Session) Deliver(id wire.ClientID, msg wire.MessageData) error {
	client, ok := s.clients[id]
	if !ok {
		return fmt.Errorf("unknown client %d", id)
	}
	client.pending = append(client.pending, msg)
	return nil
}

// Tick advances the simulation by dt seconds: delivers pending messages,
// runs every stage on the server then each client in join order, and
// mirrors synchronized entities out to client worlds.
func (s *Session) Tick(ctx context.Context, dt float32) error {
	s.tick++
	s.elapsed += float64(dt)

	frame := mustMessage(common.FrameTimeID, common.FrameTime{
		Time:  float32(s.elapsed),
		Delta: dt,
	})
	for _, m := range s.members() {
		m.inbox = append(m.pending, frame)
		m.pending = nil
	}

	for _, stage := range wire.Stages {
		for _, m := range s.members() {
			for _, sys := range m.schedule.Systems {
				if sys.Stage != stage {
					continue
				}
				if err := s.runSystem(ctx, m, sys); err != nil {
					return err
				}
			}
		}
	}

	s.mirrorSynchronized()
	return nil
}

// wireContext snapshots the host context for a boundary crossing: plugin
// name, a fresh request ID, and whatever deadline the caller carries.
func (s *Session) wireContext(ctx context.Context) wire.ContextWire {
	cw := wire.ContextWire{
		Plugin:    s.pluginName,
		RequestID: ulid.Make().String(),
		Canceled:  ctx.Err() != nil,
	}
	if deadline, ok := ctx.Deadline(); ok {
		cw.Deadline = &deadline
		cw.TimeoutMs = time.Until(deadline).Milliseconds()
	}
	return cw
}

func (s *Session) members() []*member {
	out := make([]*member, 0, 1+len(s.order))
	out = append(out, s.server)
	for _, id := range s.order {
		out = append(out, s.clients[id])
	}
	return out
}

func (s *Session) runSystem(ctx context.Context, m *member, sys wire.SystemSpec) error {
	req := wire.DispatchRequest{
		System:   sys.Name,
		Tick:     s.tick,
		Context:  s.wireContext(ctx),
		Messages: filterMessages(m.inbox, sys.Subscriptions),
	}
	if len(sys.Queries) > 0 {
		req.Queries = make(map[string][]wire.QueryRow, len(sys.Queries))
		for _, spec := range sys.Queries {
			req.Queries[spec.Name] = m.world.Query(spec)
		}
	}

	resp, err := m.plugin.Dispatch(ctx, req)
	if err != nil {
		return fmt.Errorf("dispatching %s on %s: %w", sys.Name, m.mode, err)
	}
	if resp.Error != nil {
		// A structured error isolates the failing system; the rest of the
		// tick proceeds.
		s.logger.Error("system failed",
			"system", sys.Name,
			"mode", m.mode,
			"client", m.id,
			"error", resp.Error.Error(),
		)
		return nil
	}

	if err := m.world.ApplyWrites(resp.Writes, sys.Queries); err != nil {
		return fmt.Errorf("applying writes from %s: %w", sys.Name, err)
	}
	if err := m.world.Apply(resp.Commands); err != nil {
		return fmt.Errorf("applying commands from %s: %w", sys.Name, err)
	}
	s.route(m, resp.Messages)
	return nil
}

// route queues outgoing messages for next-tick delivery. Client messages
// sent remote arrive at the server tagged with the sender; server messages
// sent remote broadcast to every client.
func (s *Session) route(from *member, msgs []wire.MessageData) {
	for _, msg := range msgs {
		switch msg.Destination.Kind {
		case wire.DestLocal:
			from.pending = append(from.pending, msg)
		case wire.DestRemote:
			if from.mode == wire.ModeClient {
				sender := from.id
				msg.Sender = &sender
				s.server.pending = append(s.server.pending, msg)
			} else {
				for _, id := range s.order {
					s.clients[id].pending = append(s.clients[id].pending, msg)
				}
			}
		case wire.DestClient:
			if from.mode != wire.ModeServer {
				s.logger.Warn("client-targeted message from non-server dropped", "message", msg.ID)
				continue
			}
			if c, ok := s.clients[msg.Destination.Client]; ok {
				c.pending = append(c.pending, msg)
			}
		default:
			s.logger.Warn("message with unknown destination dropped", "message", msg.ID)
		}
	}
}

// mirrorSynchronized copies marked server entities into every client
// world and evicts entities that lost the marker or were removed.
func (s *Session) mirrorSynchronized() {
	current := make(map[wire.EntityID]struct{})
	for _, entity := range s.server.world.Entities(common.SynchronizedID) {
		current[entity] = struct{}{}
		components := s.server.world.ComponentsOf(entity)
		for _, id := range s.order {
			s.clients[id].world.Mirror(entity, components)
		}
	}
	for entity := range s.synced {
		if _, ok := current[entity]; ok {
			continue
		}
		for _, id := range s.order {
			s.clients[id].world.Remove(entity)
		}
	}
	s.synced = current
}

func (s *Session) announceConnections() {
	conns := common.Connections{Clients: make([]common.Connection, 0, len(s.order))}
	for _, id := range s.order {
		conns.Clients = append(conns.Clients, common.Connection{ID: id})
	}
	s.server.pending = append(s.server.pending, mustMessage(common.ConnectionsID, conns))
}

func filterMessages(inbox []wire.MessageData, subscriptions []string) []wire.MessageData {
	if len(subscriptions) == 0 {
		return nil
	}
	var out []wire.MessageData
	for _, msg := range inbox {
		if slices.Contains(subscriptions, msg.ID) {
			out = append(out, msg)
		}
	}
	return out
}

func mustMessage(id string, payload any) wire.MessageData {
	data, err := json.Marshal(payload)
	if err != nil {
		panic(fmt.Sprintf("marshaling %s: %v", id, err))
	}
	return wire.MessageData{
		ID:          id,
		Destination: wire.Destination{Kind: wire.DestLocal},
		Data:        data,
	}
}
