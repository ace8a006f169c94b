// Package notify defines the boundary between the session engines and the
// view layer: user-visible notifications and navigation signals.
package notify

import (
	"log/slog"
	"sync"
)

// Level classifies a notification for display.
type Level string

const (
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
	LevelError   Level = "error"
)

// Route is a view the session can ask the host to navigate to.
type Route string

const (
	RouteLogin  Route = "/login"
	RouteOrders Route = "/orders"
)

// Sink receives user-visible messages (toasts, status lines).
type Sink interface {
	Notify(level Level, message string)
}

// Navigator receives navigation signals.
type Navigator interface {
	Navigate(route Route)
}

// Discard drops every notification and navigation.
var Discard = discard{}

type discard struct{}

func (discard) Notify(Level, string) {}
func (discard) Navigate(Route)       {}

// LogSink writes notifications and navigations through slog.
type LogSink struct {
	Logger *slog.Logger
}

func (s LogSink) Notify(level Level, message string) {
	attrs := []any{slog.String("level", string(level)), slog.String("message", message)}
	if level == LevelError {
		s.Logger.Warn("notification", attrs...)
		return
	}
	s.Logger.Info("notification", attrs...)
}

func (s LogSink) Navigate(route Route) {
	s.Logger.Info("navigate", slog.String("route", string(route)))
}

// Notification is one recorded message.
type Notification struct {
	Level   Level  `json:"level"`
	Message string `json:"message"`
}

// Recorder keeps every notification and navigation in order.
// Safe for concurrent use.
type Recorder struct {
	mu       sync.Mutex
	messages []Notification
	routes   []Route
}

func (r *Recorder) Notify(level Level, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, Notification{Level: level, Message: message})
}

func (r *Recorder) Navigate(route Route) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.routes = append(r.routes, route)
}

// Messages returns a copy of the recorded notifications.
func (r *Recorder) Messages() []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Notification(nil), r.messages...)
}

// Routes returns a copy of the recorded navigations.
func (r *Recorder) Routes() []Route {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Route(nil), r.routes...)
}

// Drain returns and clears the recorded notifications.
func (r *Recorder) Drain() []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.messages
	r.messages = nil
	return out
}

// Last returns the most recent notification, if any.
func (r *Recorder) Last() (Notification, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.messages) == 0 {
		return Notification{}, false
	}
	return r.messages[len(r.messages)-1], true
}
