package monitor

import (
	"log/slog"
	"sync"
)

// AppState is the device application lifecycle state.
type AppState string

const (
	AppStateForeground AppState = "foreground"
	AppStateBackground AppState = "background"
)

// Monitor tracks online/offline and foreground/background transitions and
// fires edge-triggered events on change. It holds no persistence: every
// process starts fresh, online and foregrounded, until told otherwise.
type Monitor struct {
	mu       sync.Mutex
	online   bool
	appState AppState

	wentOnline        []func()
	wentOffline       []func()
	enteredForeground []func()
	enteredBackground []func()
}

// New creates a monitor defaulting to online/foreground.
func New() *Monitor {
	return &Monitor{
		online:   true,
		appState: AppStateForeground,
	}
}

// Online reports the last observed connectivity state.
func (m *Monitor) Online() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.online
}

// AppState reports the last observed lifecycle state.
func (m *Monitor) AppState() AppState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.appState
}

// OnWentOnline registers a handler for the offline->online edge.
func (m *Monitor) OnWentOnline(fn func()) {
	m.mu.Lock()
	m.wentOnline = append(m.wentOnline, fn)
	m.mu.Unlock()
}

// OnWentOffline registers a handler for the online->offline edge.
func (m *Monitor) OnWentOffline(fn func()) {
	m.mu.Lock()
	m.wentOffline = append(m.wentOffline, fn)
	m.mu.Unlock()
}

// OnEnteredForeground registers a handler for the background->foreground edge.
func (m *Monitor) OnEnteredForeground(fn func()) {
	m.mu.Lock()
	m.enteredForeground = append(m.enteredForeground, fn)
	m.mu.Unlock()
}

// OnEnteredBackground registers a handler for the foreground->background edge.
func (m *Monitor) OnEnteredBackground(fn func()) {
	m.mu.Lock()
	m.enteredBackground = append(m.enteredBackground, fn)
	m.mu.Unlock()
}

// SetOnline records a connectivity observation. Handlers fire only when the
// state actually changed, outside the lock.
func (m *Monitor) SetOnline(online bool) {
	m.mu.Lock()
	if m.online == online {
		m.mu.Unlock()
		return
	}
	m.online = online
	var handlers []func()
	if online {
		handlers = append(handlers, m.wentOnline...)
	} else {
		handlers = append(handlers, m.wentOffline...)
	}
	m.mu.Unlock()

	slog.Info("connectivity changed", "online", online)
	for _, fn := range handlers {
		fn()
	}
}

// SetAppState records a lifecycle observation. Handlers fire only on change.
func (m *Monitor) SetAppState(state AppState) {
	m.mu.Lock()
	if m.appState == state {
		m.mu.Unlock()
		return
	}
	m.appState = state
	var handlers []func()
	if state == AppStateForeground {
		handlers = append(handlers, m.enteredForeground...)
	} else {
		handlers = append(handlers, m.enteredBackground...)
	}
	m.mu.Unlock()

	slog.Info("app state changed", "state", state)
	for _, fn := range handlers {
		fn()
	}
}
