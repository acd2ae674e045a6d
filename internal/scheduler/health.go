package scheduler

import (
	"sort"
	"sync"
	"time"
)

// HealthStatus represents the health of a component.
type HealthStatus struct {
	Healthy     bool      `json:"healthy"`
	LastCheck   time.Time `json:"last_check"`
	LastSuccess time.Time `json:"last_success,omitzero"`
	LastError   string    `json:"last_error,omitempty"`
	Message     string    `json:"message"`
}

// HealthReport is a point-in-time view of every component.
type HealthReport struct {
	Healthy    bool                     `json:"healthy"`
	Components map[string]*HealthStatus `json:"components"`
}

// Health tracks the health of various components.
type Health struct {
	mu         sync.RWMutex
	components map[string]*HealthStatus
	now        func() time.Time
}

// NewHealth creates a new health tracker.
func NewHealth() *Health {
	return &Health{
		components: make(map[string]*HealthStatus),
		now:        time.Now,
	}
}

func (h *Health) component(name string) *HealthStatus {
	status, ok := h.components[name]
	if !ok {
		status = &HealthStatus{}
		h.components[name] = status
	}
	return status
}

// SetHealthy marks a component as healthy.
func (h *Health) SetHealthy(component, message string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	now := h.now()
	status := h.component(component)
	status.Healthy = true
	status.LastCheck = now
	status.LastSuccess = now
	status.LastError = ""
	status.Message = message
}

// SetUnhealthy marks a component as unhealthy.
func (h *Health) SetUnhealthy(component string, err error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	status := h.component(component)
	status.Healthy = false
	status.LastCheck = h.now()
	status.LastError = err.Error()
	status.Message = err.Error()
}

// GetStatus returns a copy of a component's status, or nil if it was never reported.
func (h *Health) GetStatus(component string) *HealthStatus {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if status, ok := h.components[component]; ok {
		c := *status
		return &c
	}
	return nil
}

// Components returns the names of every reported component, sorted.
func (h *Health) Components() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	names := make([]string, 0, len(h.components))
	for name := range h.components {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Report returns a copy of every component status and the overall verdict.
// The report is healthy when no component is unhealthy.
func (h *Health) Report() HealthReport {
	names := h.Components()
	report := HealthReport{
		Healthy:    true,
		Components: make(map[string]*HealthStatus, len(names)),
	}

	for _, name := range names {
		status := h.GetStatus(name)
		if status == nil {
			continue
		}
		report.Components[name] = status
		if !status.Healthy {
			report.Healthy = false
		}
	}
	return report
}
