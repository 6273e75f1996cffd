package storage

import (
	"sort"
	"sync"
	"time"
)

// HealthData is the last known state of one storage engine.
type HealthData struct {
	Engine    string    `json:"engine"`
	LastCheck time.Time `json:"last_check"`
	Status    string    `json:"status"`
	Error     string    `json:"error,omitempty"`
}

// Healthy reports whether the last check succeeded.
func (h HealthData) Healthy() bool {
	return h.Status == StatusHealthy
}

const (
	StatusHealthy   = "healthy"
	StatusUnhealthy = "unhealthy"
)

// HealthManager keeps the health status of the storage engines in memory
type HealthManager struct {
	mu     sync.RWMutex
	health map[string]HealthData
}

func NewHealthManager() *HealthManager {
	return &HealthManager{
		health: make(map[string]HealthData),
	}
}

// UpdateHealth records the outcome of a health check
func (hm *HealthManager) UpdateHealth(engine string, err error) HealthData {
	h := HealthData{
		Engine:    engine,
		LastCheck: time.Now(),
		Status:    StatusHealthy,
	}
	if err != nil {
		h.Status = StatusUnhealthy
		h.Error = err.Error()
	}

	hm.mu.Lock()
	hm.health[engine] = h
	hm.mu.Unlock()
	return h
}

// GetHealth retrieves the health status for a specific engine
func (hm *HealthManager) GetHealth(engine string) (HealthData, bool) {
	hm.mu.RLock()
	defer hm.mu.RUnlock()

	h, exists := hm.health[engine]
	return h, exists
}

// All returns every known status ordered by engine name.
func (hm *HealthManager) All() []HealthData {
	hm.mu.RLock()
	defer hm.mu.RUnlock()

	out := make([]HealthData, 0, len(hm.health))
	for _, h := range hm.health {
		out = append(out, h)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Engine < out[j].Engine })
	return out
}
