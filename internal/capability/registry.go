// Package capability advertises which TTS engines this host can offer
// and tracks the same announcements from other Alouette hosts.
package capability

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/alouette-audio/alouette-host/internal/bus"
	"github.com/alouette-audio/alouette-host/internal/config"
	"github.com/alouette-audio/alouette-host/internal/engine"
	"github.com/alouette-audio/alouette-host/internal/hostinfo"
	"github.com/alouette-audio/alouette-host/internal/protocol"
	"github.com/nats-io/nats.go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

// HostInfo describes one announced Alouette host.
type HostInfo struct {
	ID       string    `json:"id"`
	Role     string    `json:"role"`
	Platform string    `json:"platform"`
	Engines  []string  `json:"engines"`
	LastSeen time.Time `json:"last_seen"`
	Healthy  bool      `json:"healthy"`
}

type announceMessage struct {
	NodeID    string    `json:"node_id"`
	Role      string    `json:"role"`
	Platform  string    `json:"platform"`
	Engines   []string  `json:"engines"`
	Timestamp time.Time `json:"timestamp"`
}

type heartbeatMessage struct {
	NodeID    string    `json:"node_id"`
	Timestamp time.Time `json:"timestamp"`
}

type Registry struct {
	cfg       config.NodeConfig
	log       *slog.Logger
	bus       *bus.Client
	catalog   *engine.Catalog
	mu        sync.RWMutex
	hosts     map[string]*HostInfo
	heartbeat *time.Ticker
	cancel    context.CancelFunc
	subs      []*nats.Subscription
	meter     metric.Meter
}

func NewRegistry(ctx context.Context, cfg config.NodeConfig, catalog *engine.Catalog, busClient *bus.Client, log *slog.Logger) (*Registry, error) {
	ctx, cancel := context.WithCancel(ctx)
	r := &Registry{
		cfg:     cfg,
		log:     log.With(slog.String("component", "capability-registry")),
		bus:     busClient,
		catalog: catalog,
		hosts:   make(map[string]*HostInfo),
		meter:   otel.Meter("github.com/alouette-audio/alouette-host/capability"),
		cancel:  cancel,
	}

	if err := r.initMetrics(); err != nil {
		r.log.Warn("failed to initialize metrics", slog.String("error", err.Error()))
	}

	if err := r.subscribe(); err != nil {
		r.cancel()
		return nil, err
	}

	r.heartbeat = time.NewTicker(time.Duration(cfg.HeartbeatInterval) * time.Millisecond)
	go r.runHeartbeat(ctx)
	go r.monitorHealth(ctx)

	if err := r.announce(); err != nil {
		r.log.Warn("failed to announce host", slog.String("error", err.Error()))
	}

	return r, nil
}

func (r *Registry) Close() {
	if r.cancel != nil {
		r.cancel()
	}
	if r.heartbeat != nil {
		r.heartbeat.Stop()
	}
	for _, sub := range r.subs {
		_ = sub.Drain()
	}
}

func (r *Registry) subscribe() error {
	conn := r.bus.Conn()
	announceSub, err := conn.Subscribe(protocol.SubjectHostAnnounce, r.handleAnnounce)
	if err != nil {
		return fmt.Errorf("subscribe announce: %w", err)
	}
	r.subs = append(r.subs, announceSub)

	heartbeatSub, err := conn.Subscribe(protocol.SubjectHostHeartbeatPrefix+".*", r.handleHeartbeat)
	if err != nil {
		return fmt.Errorf("subscribe heartbeat: %w", err)
	}
	r.subs = append(r.subs, heartbeatSub)

	return nil
}

func (r *Registry) runHeartbeat(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-r.heartbeat.C:
			if err := r.publishHeartbeat(); err != nil {
				r.log.Warn("failed to publish heartbeat", slog.String("error", err.Error()))
			}
		}
	}
}

func (r *Registry) monitorHealth(ctx context.Context) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.evaluateHealth()
		}
	}
}

// announce publishes a fresh availability snapshot. Engines are probed
// at announce time, so a newly installed tool shows up on the next one.
func (r *Registry) announce() error {
	msg := announceMessage{
		NodeID:    r.cfg.ID,
		Role:      r.cfg.Role,
		Platform:  hostinfo.Version(),
		Engines:   r.catalog.Available(),
		Timestamp: time.Now().UTC(),
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	if err := r.bus.Conn().Publish(protocol.SubjectHostAnnounce, payload); err != nil {
		return err
	}
	r.updateHost(msg.NodeID, msg.Role, msg.Platform, msg.Engines, msg.Timestamp)
	return nil
}

func (r *Registry) publishHeartbeat() error {
	msg := heartbeatMessage{
		NodeID:    r.cfg.ID,
		Timestamp: time.Now().UTC(),
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	subject := fmt.Sprintf("%s.%s", protocol.SubjectHostHeartbeatPrefix, r.cfg.ID)
	return r.bus.Conn().Publish(subject, payload)
}

func (r *Registry) handleAnnounce(msg *nats.Msg) {
	var announcement announceMessage
	if err := json.Unmarshal(msg.Data, &announcement); err != nil {
		r.log.Warn("invalid announce message", slog.String("error", err.Error()))
		return
	}
	if announcement.Timestamp.IsZero() {
		announcement.Timestamp = time.Now().UTC()
	}
	r.updateHost(announcement.NodeID, announcement.Role, announcement.Platform, announcement.Engines, announcement.Timestamp)
}

func (r *Registry) handleHeartbeat(msg *nats.Msg) {
	var hb heartbeatMessage
	if err := json.Unmarshal(msg.Data, &hb); err != nil {
		r.log.Warn("invalid heartbeat message", slog.String("error", err.Error()))
		return
	}
	if hb.Timestamp.IsZero() {
		hb.Timestamp = time.Now().UTC()
	}
	r.updateHost(hb.NodeID, "", "", nil, hb.Timestamp)
}

func (r *Registry) updateHost(nodeID, role, platform string, engines []string, timestamp time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()

	host, ok := r.hosts[nodeID]
	if !ok {
		host = &HostInfo{ID: nodeID}
		r.hosts[nodeID] = host
	}
	if role != "" {
		host.Role = role
	}
	if platform != "" {
		host.Platform = platform
	}
	if engines != nil {
		host.Engines = engines
	}
	host.LastSeen = timestamp
	host.Healthy = true
}

func (r *Registry) evaluateHealth() {
	r.mu.Lock()
	defer r.mu.Unlock()

	timeout := time.Duration(r.cfg.HeartbeatTimeout) * time.Millisecond
	now := time.Now()
	for _, host := range r.hosts {
		if now.Sub(host.LastSeen) > timeout {
			host.Healthy = false
		}
	}
}

func (r *Registry) Healthy() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	host, ok := r.hosts[r.cfg.ID]
	if !ok {
		return false
	}
	return host.Healthy
}

// Query returns known hosts matching filter; a nil filter matches all.
func (r *Registry) Query(filter func(HostInfo) bool) []HostInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var results []HostInfo
	for _, host := range r.hosts {
		copy := *host
		if filter == nil || filter(copy) {
			results = append(results, copy)
		}
	}
	return results
}

// WithEngineFilter matches hosts advertising the named engine.
func WithEngineFilter(name string) func(HostInfo) bool {
	return func(host HostInfo) bool {
		for _, available := range host.Engines {
			if available == name {
				return true
			}
		}
		return false
	}
}

func (r *Registry) initMetrics() error {
	if r.meter == nil {
		return nil
	}
	hostGauge, err := r.meter.Int64ObservableGauge("alouette.hosts.known",
		metric.WithDescription("Number of known Alouette hosts"))
	if err != nil {
		return err
	}
	engineGauge, err := r.meter.Int64ObservableGauge("alouette.hosts.engines",
		metric.WithDescription("Total advertised TTS engines"))
	if err != nil {
		return err
	}
	_, err = r.meter.RegisterCallback(func(ctx context.Context, obs metric.Observer) error {
		hosts, engines := r.snapshotCounts()
		obs.ObserveInt64(hostGauge, hosts)
		obs.ObserveInt64(engineGauge, engines)
		return nil
	}, hostGauge, engineGauge)
	return err
}

func (r *Registry) snapshotCounts() (int64, int64) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var hosts int64
	var engines int64
	for _, host := range r.hosts {
		hosts++
		engines += int64(len(host.Engines))
	}
	return hosts, engines
}
