package provider

import (
	"context"

	"go.opentelemetry.io/otel/attribute"

	"github.com/kbukum/prefkit/event"
	"github.com/kbukum/prefkit/logger"
	"github.com/kbukum/prefkit/observability"
	"github.com/kbukum/prefkit/preference"
	"github.com/kbukum/prefkit/uri"
)

// Write tiers, in the order they are tried.
const (
	TierExisting = "existing"
	TierPath     = "path"
	TierAny      = "any"
	TierNone     = "none"
)

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithManagerLogger sets the logger.
func WithManagerLogger(log *logger.Logger) ManagerOption {
	return func(m *Manager) { m.log = log }
}

// WithManagerMetrics sets the metrics instruments.
func WithManagerMetrics(metrics *observability.Metrics) ManagerOption {
	return func(m *Manager) { m.metrics = metrics }
}

// Manager answers preference reads and writes for resources using the
// providers of a Registry.
type Manager struct {
	reg      *Registry
	selector FolderSelector
	log      *logger.Logger
	metrics  *observability.Metrics
}

// NewManager creates a manager over reg.
func NewManager(reg *Registry, opts ...ManagerOption) *Manager {
	m := &Manager{reg: reg}
	for _, opt := range opts {
		opt(m)
	}
	if m.log == nil {
		m.log = logger.Get("provider")
	}
	return m
}

// group is the providers of one logical config name within a folder.
type group struct {
	name    string
	entries []*Entry
}

type contribution struct {
	value     any
	configURI uri.URI
}

// reduce merges the contributions of groups in order, later groups winning.
// The config URI of the last contributing group is kept.
func reduce(groups []group, contribute func(group) (contribution, bool)) (contribution, bool) {
	var acc contribution
	found := false
	for _, g := range groups {
		c, ok := contribute(g)
		if !ok {
			continue
		}
		acc.value = preference.Merge(acc.value, c.value)
		acc.configURI = c.configURI
		found = true
	}
	return acc, found
}

func (m *Manager) folderEntries(resource uri.URI) []*Entry {
	return m.selector.Select(m.reg.Snapshot(), resource)
}

func (m *Manager) groups(entries []*Entry) []group {
	order := m.reg.Configurations().PrecedenceOrder()
	groups := make([]group, 0, len(order))
	for _, name := range order {
		g := group{name: name}
		for _, e := range entries {
			if e.ConfigName == name {
				g.entries = append(g.entries, e)
			}
		}
		groups = append(groups, g)
	}
	return groups
}

// Resolve returns the effective value of name for resource.
func (m *Manager) Resolve(ctx context.Context, name string, resource uri.URI) preference.ResolveResult {
	ctx, op := observability.StartOperation(ctx, observability.SpanResolve, m.metrics,
		attribute.String(observability.AttrPreference, name),
		attribute.String(observability.AttrResource, resource.String()),
	)

	c, ok := reduce(m.groups(m.folderEntries(resource)), func(g group) (contribution, bool) {
		for _, e := range g.entries {
			res := e.Provider.Resolve(name, resource)
			if res.Value != nil && !res.ConfigURI.IsZero() {
				return contribution{value: res.Value, configURI: res.ConfigURI}, true
			}
		}
		return contribution{}, false
	})

	op.EndLookup(ctx, ok)
	if !ok {
		return preference.ResolveResult{}
	}
	return preference.ResolveResult{Value: c.value, ConfigURI: c.configURI}
}

// Preferences returns every preference that applies to resource.
func (m *Manager) Preferences(ctx context.Context, resource uri.URI) map[string]any {
	ctx, op := observability.StartOperation(ctx, observability.SpanPreferences, m.metrics,
		attribute.String(observability.AttrResource, resource.String()),
	)

	c, ok := reduce(m.groups(m.folderEntries(resource)), func(g group) (contribution, bool) {
		for _, e := range g.entries {
			if configURI, ok := e.Provider.ConfigURI(resource); ok {
				return contribution{value: e.Provider.Preferences(resource), configURI: configURI}, true
			}
		}
		return contribution{}, false
	})

	op.EndLookup(ctx, ok)
	prefs, _ := c.value.(map[string]any)
	if prefs == nil {
		prefs = map[string]any{}
	}
	return prefs
}

type tier struct {
	name       string
	candidates func() []*Entry
}

// SetPreference writes name for resource. A nil value removes it. It
// returns false when no provider of the resource's folder accepted the
// write.
func (m *Manager) SetPreference(ctx context.Context, name string, value any, resource uri.URI) bool {
	ctx, op := observability.StartOperation(ctx, observability.SpanSetPreference, m.metrics,
		attribute.String(observability.AttrPreference, name),
		attribute.String(observability.AttrResource, resource.String()),
	)

	entries := m.folderEntries(resource)
	configName := m.reg.Configurations().ConfigNameFor(name)

	var named []*Entry
	for _, e := range entries {
		if e.ConfigName == configName {
			named = append(named, e)
		}
	}

	tiers := []tier{
		{TierExisting, func() []*Entry {
			var out []*Entry
			for _, e := range named {
				if _, ok := e.Provider.ConfigURI(resource); ok {
					out = append(out, e)
				}
			}
			return out
		}},
		{TierPath, func() []*Entry {
			var path string
			found := false
			for _, e := range entries {
				if _, ok := e.Provider.ConfigURI(resource); ok {
					path, found = e.ConfigPath, true
					break
				}
			}
			if !found {
				return nil
			}
			var out []*Entry
			for _, e := range named {
				if e.ConfigPath == path {
					out = append(out, e)
				}
			}
			return out
		}},
		{TierAny, func() []*Entry { return named }},
	}

	tried := make(map[*Entry]struct{}, len(named))
	for _, t := range tiers {
		for _, e := range t.candidates() {
			if _, ok := tried[e]; ok {
				continue
			}
			tried[e] = struct{}{}
			if e.Provider.SetPreference(ctx, name, value, resource) {
				m.metrics.RecordWrite(ctx, t.name, true)
				op.Span().SetAttributes(
					attribute.String(observability.AttrTier, t.name),
					attribute.String(observability.AttrConfigURI, e.ConfigURI.String()),
				)
				op.End("accepted", nil)
				m.log.Debug("preference written", logger.Fields(
					logger.FieldPreference, name,
					logger.FieldConfigURI, e.ConfigURI.String(),
					logger.FieldTier, t.name,
				))
				return true
			}
		}
	}

	m.metrics.RecordWrite(ctx, TierNone, false)
	op.End("rejected", nil)
	m.log.Debug("preference write not accepted", logger.Fields(
		logger.FieldPreference, name,
		logger.FieldResource, resource.String(),
		logger.FieldCount, len(tried),
	))
	return false
}

// ConfigURI returns the existing file of the given config name that applies
// to resource.
func (m *Manager) ConfigURI(resource uri.URI, configName string) (uri.URI, bool) {
	for _, e := range m.folderEntries(resource) {
		if e.ConfigName != configName {
			continue
		}
		if u, ok := e.Provider.ConfigURI(resource); ok {
			return u, true
		}
	}
	return uri.URI{}, false
}

// FolderProviders returns the providers of the folder selected for resource.
func (m *Manager) FolderProviders(resource uri.URI) []Provider {
	entries := m.folderEntries(resource)
	out := make([]Provider, len(entries))
	for i, e := range entries {
		out[i] = e.Provider
	}
	return out
}

// Domain returns the URIs of the workspace roots.
func (m *Manager) Domain() []string {
	roots := m.reg.Roots()
	out := make([]string, len(roots))
	for i, r := range roots {
		out[i] = r.URI.String()
	}
	return out
}

// OnChanged subscribes to preference changes.
func (m *Manager) OnChanged(listener func(preference.ChangeSet)) event.Disposable {
	return m.reg.OnChanged(listener)
}
