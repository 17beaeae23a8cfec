package codec

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/smazurov/codecbridge/internal/events"
	"github.com/smazurov/codecbridge/internal/logging"
	"github.com/smazurov/codecbridge/internal/metrics"
	"github.com/smazurov/codecbridge/pkg/videocore/mmal"
)

// Manager tracks open sessions across roles and hands out identifiers.
type Manager interface {
	// Open creates a session for a role.
	Open(role Role) (*Session, error)
	// Get looks up a session by identifier.
	Get(id string) (*Session, bool)
	// Close tears down one session.
	Close(id string) error
	// CloseAll tears down every open session.
	CloseAll()
	// List snapshots the open sessions.
	List() []SessionInfo
	// Formats lists the catalog for a role and queue.
	Formats(role Role, dir Direction) []Format
}

// SessionInfo is a point-in-time view of a session for observation
// surfaces.
type SessionInfo struct {
	ID              string
	Role            string
	InputStreaming  bool
	OutputStreaming bool
	BuffersIn       uint64
	BuffersOut      uint64
}

// ManagerOptions configures NewManager.
type ManagerOptions struct {
	Instance mmal.Instance
	Config   Config
	Bus      *events.Bus
}

type manager struct {
	instance mmal.Instance
	cfg      Config
	bus      *events.Bus
	logger   *slog.Logger

	mu       sync.Mutex
	sessions map[string]*Session
	nextSeq  map[Role]int
}

// NewManager creates a session manager bound to one accelerator instance.
func NewManager(opts *ManagerOptions) Manager {
	return &manager{
		instance: opts.Instance,
		cfg:      opts.Config,
		bus:      opts.Bus,
		logger:   logging.GetLogger("codec"),
		sessions: make(map[string]*Session),
		nextSeq:  make(map[Role]int),
	}
}

func (m *manager) Open(role Role) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextSeq[role]++
	id := fmt.Sprintf("%s-%d", role.String(), m.nextSeq[role])
	s, err := NewSession(&Options{
		ID:       id,
		Role:     role,
		Instance: m.instance,
		Config:   m.cfg,
		Bus:      m.bus,
	})
	if err != nil {
		return nil, err
	}
	m.sessions[id] = s
	metrics.SessionOpened(role.String())
	if m.bus != nil {
		m.bus.Publish(events.SessionOpenedEvent{
			SessionID: id, Role: role.String(), Timestamp: timestamp(),
		})
	}
	return s, nil
}

func (m *manager) Get(id string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	return s, ok
}

func (m *manager) Close(id string) error {
	m.mu.Lock()
	s, ok := m.sessions[id]
	if ok {
		delete(m.sessions, id)
	}
	m.mu.Unlock()
	if !ok {
		return NewError(ErrCodeNotFound, "no such session "+id, nil)
	}
	err := s.Close()
	metrics.SessionClosed(s.Role().String())
	if m.bus != nil {
		m.bus.Publish(events.SessionClosedEvent{
			SessionID: id, Role: s.Role().String(), Timestamp: timestamp(),
		})
	}
	return err
}

func (m *manager) CloseAll() {
	m.mu.Lock()
	ids := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	m.mu.Unlock()
	for _, id := range ids {
		if err := m.Close(id); err != nil {
			m.logger.Warn("Session close failed", "session", id, "error", err)
		}
	}
}

func (m *manager) List() []SessionInfo {
	m.mu.Lock()
	sessions := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		sessions = append(sessions, s)
	}
	m.mu.Unlock()

	out := make([]SessionInfo, 0, len(sessions))
	for _, s := range sessions {
		in, outCount := s.Stats()
		out = append(out, SessionInfo{
			ID:              s.ID(),
			Role:            s.Role().String(),
			InputStreaming:  s.Streaming(DirInput),
			OutputStreaming: s.Streaming(DirOutput),
			BuffersIn:       in,
			BuffersOut:      outCount,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (m *manager) Formats(role Role, dir Direction) []Format {
	return SupportedFormats(role, dir, m.cfg.DisableBayer, nil)
}
