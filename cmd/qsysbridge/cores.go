package main

import (
	"context"
	"sync"
	"time"

	"github.com/nerrad567/gray-logic-qsys/internal/history"
	"github.com/nerrad567/gray-logic-qsys/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-qsys/internal/infrastructure/logging"
	"github.com/nerrad567/gray-logic-qsys/internal/qrc"
	"github.com/nerrad567/gray-logic-qsys/internal/qsys"
)

// coreSet owns the Core sessions. A session that drops is removed from the
// directory, which unbinds the adapters on it; it is not re-dialled.
type coreSet struct {
	dir      *qsys.Directory
	recorder *history.Recorder
	log      *logging.Logger

	mu       sync.Mutex
	ids      []string
	sessions map[string]*coreSession
}

type coreSession struct {
	core   *qrc.Core
	detach func()
}

// newCoreSet creates an empty set. recorder may be nil.
func newCoreSet(dir *qsys.Directory, recorder *history.Recorder, log *logging.Logger) *coreSet {
	return &coreSet{
		dir:      dir,
		recorder: recorder,
		log:      log,
		sessions: make(map[string]*coreSession),
	}
}

// ConnectAll dials every configured Core. A Core that cannot be reached is
// logged and reported as disconnected in health.
func (s *coreSet) ConnectAll(ctx context.Context, cores []config.CoreConfig) {
	for _, cc := range cores {
		s.mu.Lock()
		s.ids = append(s.ids, cc.ID)
		s.mu.Unlock()

		if err := s.connect(ctx, cc); err != nil {
			s.log.Error("connecting to core failed",
				"core_id", cc.ID,
				"host", cc.Host,
				"error", err,
			)
		}
	}
}

func (s *coreSet) connect(ctx context.Context, cc config.CoreConfig) error {
	connectTimeout, keepalive, pollRate := cc.Timeouts()
	core, err := qrc.Connect(ctx, qrc.Config{
		ID:                cc.ID,
		Host:              cc.Host,
		Port:              cc.Port,
		ConnectTimeout:    connectTimeout,
		KeepaliveInterval: keepalive,
		PollRate:          pollRate,
	}, s.log)
	if err != nil {
		return err
	}

	sess := &coreSession{core: core}
	if s.recorder != nil {
		sess.detach = s.recorder.Attach(core)
	}

	s.mu.Lock()
	s.sessions[cc.ID] = sess
	s.mu.Unlock()

	s.dir.Register(core)

	core.SetOnDisconnect(func(err error) { s.drop(cc.ID, core) })
	// The link may have failed before the callback was set.
	if !core.IsConnected() {
		s.drop(cc.ID, core)
	}
	return nil
}

// drop forgets core if it is still the current session for id.
func (s *coreSet) drop(id string, core *qrc.Core) {
	s.mu.Lock()
	sess, ok := s.sessions[id]
	if !ok || sess.core != core {
		s.mu.Unlock()
		return
	}
	delete(s.sessions, id)
	s.mu.Unlock()

	s.dir.Unregister(id)
	if sess.detach != nil {
		sess.detach()
	}
	s.log.Warn("core removed from directory", "core_id", id)
}

// Stats reports every configured Core, connected or not, in config order.
func (s *coreSet) Stats() []qrc.Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	stats := make([]qrc.Stats, 0, len(s.ids))
	for _, id := range s.ids {
		if sess, ok := s.sessions[id]; ok {
			stats = append(stats, sess.core.Stats())
			continue
		}
		stats = append(stats, qrc.Stats{CoreID: id})
	}
	return stats
}

// CloseAll closes every live session.
func (s *coreSet) CloseAll() {
	s.mu.Lock()
	sessions := s.sessions
	s.sessions = make(map[string]*coreSession)
	s.mu.Unlock()

	for id, sess := range sessions {
		s.dir.Unregister(id)
		if sess.detach != nil {
			sess.detach()
		}
		if err := sess.core.Close(); err != nil {
			s.log.Error("error closing core session", "core_id", id, "error", err)
		}
	}
}

// pointWriter is the part of the InfluxDB client exportCoreStats uses.
type pointWriter interface {
	WritePoint(measurement string, tags map[string]string, fields map[string]interface{})
}

// exportCoreStats writes per-Core session counters to the qsys_core
// measurement every interval until ctx is done.
func exportCoreStats(ctx context.Context, w pointWriter, cores *coreSet, interval time.Duration) {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			writeCoreStats(w, cores.Stats())
		}
	}
}

func writeCoreStats(w pointWriter, stats []qrc.Stats) {
	for _, st := range stats {
		// #nosec G115 -- counters stay far below MaxInt64
		w.WritePoint("qsys_core",
			map[string]string{"core": st.CoreID},
			map[string]interface{}{
				"connected":         st.Connected,
				"commands_sent":     int64(st.CommandsTx),
				"commands_dropped":  int64(st.CommandsDropped),
				"messages_received": int64(st.MessagesRx),
				"changes_received":  int64(st.ChangesRx),
				"changes_dropped":   int64(st.ChangesDropped),
				"errors":            int64(st.ErrorsTotal),
			})
	}
}
