// Package feature probes the environment for optional capabilities
// (docker socket, notification endpoint, policy file, staging/publish
// directories) and caches the results for a short TTL.
package feature

import (
	"os"
	"sync"
	"time"
)

const cacheTTL = 30 * time.Second

// Status is one feature's probed availability.
type Status struct {
	Name       string         `json:"name"`
	Available  bool           `json:"available"`
	Configured bool           `json:"configured"`
	Error      string         `json:"error,omitempty"`
	Details    map[string]any `json:"details,omitempty"`
	Suggestion string         `json:"suggestion,omitempty"`
}

// Probe computes a fresh Status for one named feature.
type Probe func() Status

// Detector caches Probe results for cacheTTL; only the detector itself
// invalidates the cache.
type Detector struct {
	mu     sync.RWMutex
	probes map[string]Probe
	cache  map[string]Status
	stamps map[string]time.Time
}

// NewDetector wires the standard set of probes: docker, notifications,
// blog_directories, policy.
func NewDetector(dockerSocket string, notificationsEnabled bool, notificationsConfigured bool, stageRoot, publishRoot, policyFile string) *Detector {
	d := &Detector{
		probes: map[string]Probe{},
		cache:  map[string]Status{},
		stamps: map[string]time.Time{},
	}
	d.probes["docker"] = func() Status { return probeDocker(dockerSocket) }
	d.probes["notifications"] = func() Status { return probeNotifications(notificationsEnabled, notificationsConfigured) }
	d.probes["blog_directories"] = func() Status { return probeBlogDirectories(stageRoot, publishRoot) }
	d.probes["policy"] = func() Status { return probePolicyFile(policyFile) }
	return d
}

// Get returns the cached Status for name, refreshing it if the TTL has
// elapsed or nothing has been probed yet.
func (d *Detector) Get(name string) Status {
	d.mu.RLock()
	status, ok := d.cache[name]
	stamp := d.stamps[name]
	d.mu.RUnlock()

	if ok && time.Since(stamp) < cacheTTL {
		return status
	}

	probe, ok := d.probes[name]
	if !ok {
		return Status{Name: name, Available: false, Error: "unknown feature"}
	}

	fresh := probe()
	d.mu.Lock()
	d.cache[name] = fresh
	d.stamps[name] = time.Now()
	d.mu.Unlock()
	return fresh
}

// GetAll returns every known feature's current status.
func (d *Detector) GetAll() map[string]Status {
	out := make(map[string]Status, len(d.probes))
	for name := range d.probes {
		out[name] = d.Get(name)
	}
	return out
}

func probeDocker(socketPath string) Status {
	if socketPath == "" {
		socketPath = "/var/run/docker.sock"
	}
	info, err := os.Stat(socketPath)
	if err != nil {
		return Status{
			Name:       "docker",
			Available:  false,
			Configured: false,
			Error:      "Docker socket not found",
			Suggestion: "Mount /var/run/docker.sock to enable Docker operations",
		}
	}
	if info.Mode()&os.ModeSocket == 0 {
		return Status{
			Name:       "docker",
			Available:  false,
			Configured: true,
			Error:      "path exists but is not a socket",
			Suggestion: "Mount /var/run/docker.sock to enable Docker operations",
		}
	}
	return Status{Name: "docker", Available: true, Configured: true, Details: map[string]any{"socket": socketPath}}
}

func probeNotifications(enabled, configured bool) Status {
	if !enabled {
		return Status{Name: "notifications", Available: false, Configured: false, Suggestion: "Set NOTIFICATIONS_ENABLED=true to enable notification delivery"}
	}
	if !configured {
		return Status{Name: "notifications", Available: false, Configured: false, Suggestion: "Configure at least one provider via NOTIFICATION_PROVIDERS"}
	}
	return Status{Name: "notifications", Available: true, Configured: true}
}

func probeBlogDirectories(stageRoot, publishRoot string) Status {
	details := map[string]any{}
	available := true
	for label, dir := range map[string]string{"stage": stageRoot, "publish": publishRoot} {
		info, err := os.Stat(dir)
		ok := err == nil && info.IsDir()
		details[label] = ok
		if !ok {
			available = false
		}
	}
	status := Status{Name: "blog_directories", Available: available, Configured: stageRoot != "" && publishRoot != "", Details: details}
	if !available {
		status.Suggestion = "Create the configured BLOG_STAGE_ROOT and BLOG_PUBLISH_ROOT directories"
		status.Error = "one or more blog directories are missing"
	}
	return status
}

func probePolicyFile(path string) Status {
	if path == "" {
		return Status{Name: "policy", Available: false, Configured: false, Error: "POLICY_FILE not set"}
	}
	info, err := os.Stat(path)
	if err != nil {
		return Status{Name: "policy", Available: false, Configured: true, Error: "policy file not readable", Suggestion: "Check POLICY_FILE path and permissions"}
	}
	return Status{Name: "policy", Available: true, Configured: true, Details: map[string]any{"size_bytes": info.Size()}}
}
