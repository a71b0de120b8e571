package jsonfile

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
	"sync"

	"github.com/spf13/afero"
	"github.com/tidwall/gjson"
	"github.com/tidwall/jsonc"
	"github.com/tidwall/pretty"
	"github.com/tidwall/sjson"
	"go.opentelemetry.io/otel/attribute"

	"github.com/kbukum/prefkit/errors"
	"github.com/kbukum/prefkit/event"
	"github.com/kbukum/prefkit/logger"
	"github.com/kbukum/prefkit/observability"
	"github.com/kbukum/prefkit/preference"
	"github.com/kbukum/prefkit/provider"
	"github.com/kbukum/prefkit/resilience"
	"github.com/kbukum/prefkit/uri"
	"github.com/kbukum/prefkit/watcher"
)

// Provider serves one JSON configuration file.
type Provider struct {
	opts   provider.Options
	fs     afero.Fs
	log    *logger.Logger
	retry  resilience.RetryConfig
	scope  preference.Scope
	domain []string

	// ioMu serializes loads and writes of the file.
	ioMu sync.Mutex

	mu      sync.RWMutex
	exists  bool
	exposed map[string]any
	loadErr error

	loadOnce sync.Once
	readyCh  chan struct{}
	changed event.Emitter[preference.ChangeSet]
	watch   event.Disposable

	ctx    context.Context
	cancel context.CancelFunc
}

var _ provider.Provider = (*Provider)(nil)

type fileState struct {
	exists  bool
	content map[string]any
}

func (p *Provider) path() string { return p.opts.ConfigURI.FSPath() }

// read loads and parses the file. A missing file is not an error.
func (p *Provider) read() (fileState, error) {
	data, err := afero.ReadFile(p.fs, p.path())
	if err != nil {
		if stderrors.Is(err, fs.ErrNotExist) {
			return fileState{}, nil
		}
		return fileState{}, errors.ReadFailed(p.path(), err)
	}
	content, err := parse(data)
	if err != nil {
		return fileState{}, errors.ParseFailed(p.path(), err)
	}
	return fileState{exists: true, content: content}, nil
}

// parse decodes JSON with comments and trailing commas. An empty document is
// an empty object.
func parse(data []byte) (map[string]any, error) {
	clean := jsonc.ToJSON(data)
	if len(bytes.TrimSpace(clean)) == 0 {
		return map[string]any{}, nil
	}
	if !gjson.ValidBytes(clean) {
		return nil, fmt.Errorf("invalid JSON")
	}
	if !gjson.ParseBytes(clean).IsObject() {
		return nil, fmt.Errorf("top level value is not an object")
	}
	var content map[string]any
	if err := json.Unmarshal(clean, &content); err != nil {
		return nil, err
	}
	return content, nil
}

func (p *Provider) expose(st fileState) map[string]any {
	if !st.exists {
		return map[string]any{}
	}
	if p.opts.Section {
		return map[string]any{p.opts.ConfigName: st.content}
	}
	return st.content
}

// apply publishes st and fires the resulting changes.
func (p *Provider) apply(st fileState) {
	next := p.expose(st)

	p.mu.Lock()
	prev := p.exposed
	p.exposed = next
	p.exists = st.exists
	p.loadErr = nil
	p.mu.Unlock()

	if changes := preference.Diff(prev, next, p.scope, p.domain); len(changes) > 0 {
		p.changed.Fire(changes)
	}
}

// start begins the initial load once.
func (p *Provider) start() {
	p.loadOnce.Do(func() { go p.initialLoad() })
}

func (p *Provider) initialLoad() {
	defer close(p.readyCh)

	p.ioMu.Lock()
	defer p.ioMu.Unlock()

	st, err := p.read()
	if err != nil {
		p.log.Error("failed to load preferences", logger.Fields(logger.FieldError, err.Error()))
		p.mu.Lock()
		p.loadErr = err
		p.mu.Unlock()
		return
	}
	p.apply(st)
}

func (p *Provider) onFileEvent(ev watcher.Event) {
	go func() {
		if err := p.reload(p.ctx); err != nil && p.ctx.Err() == nil {
			p.log.Warn("reload failed, keeping previous preferences", logger.Fields(
				logger.FieldError, err.Error(),
				logger.FieldOperation, ev.Op.String(),
			))
		}
	}()
}

// reload re-reads the file, retrying while it is unreadable or mid-edit.
// On failure the previous content stays in effect.
func (p *Provider) reload(ctx context.Context) error {
	ctx, span := observability.StartSpan(ctx, observability.SpanProvider)
	defer span.End()
	span.SetAttributes(
		attribute.String(observability.AttrOperationName, "reload"),
		attribute.String(observability.AttrConfigURI, p.opts.ConfigURI.String()),
	)

	p.ioMu.Lock()
	defer p.ioMu.Unlock()

	st, err := resilience.Retry(ctx, p.retry, p.read)
	if err != nil {
		observability.SetSpanError(ctx, err)
		p.mu.Lock()
		p.loadErr = err
		p.mu.Unlock()
		return err
	}
	p.apply(st)
	return nil
}

// Resolve returns the value of name.
func (p *Provider) Resolve(name string, resource uri.URI) preference.ResolveResult {
	p.start()
	if !p.Contains(resource) {
		return preference.ResolveResult{}
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	if !p.exists {
		return preference.ResolveResult{}
	}
	v, ok := preference.Lookup(p.exposed, name)
	if !ok || v == nil {
		return preference.ResolveResult{}
	}
	return preference.ResolveResult{Value: preference.Clone(v), ConfigURI: p.opts.ConfigURI}
}

// Preferences returns a copy of every preference in the file.
func (p *Provider) Preferences(resource uri.URI) map[string]any {
	p.start()
	if !p.Contains(resource) {
		return map[string]any{}
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	out, _ := preference.Clone(p.exposed).(map[string]any)
	if out == nil {
		out = map[string]any{}
	}
	return out
}

// ConfigURI returns the file's URI when it exists.
func (p *Provider) ConfigURI(resource uri.URI) (uri.URI, bool) {
	p.start()
	if !p.Contains(resource) {
		return uri.URI{}, false
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	if !p.exists {
		return uri.URI{}, false
	}
	return p.opts.ConfigURI, true
}

// Contains reports whether resource lies in the provider's folder.
func (p *Provider) Contains(resource uri.URI) bool {
	return resource.IsZero() || p.opts.Folder.IsEqualOrParent(resource)
}

// OnChanged subscribes to changes of the file's preferences. The first
// subscription starts the initial load, whose content arrives as a change.
func (p *Provider) OnChanged(listener func(preference.ChangeSet)) event.Disposable {
	d := p.changed.Event(listener)
	p.start()
	return d
}

// Ready waits for the initial load and returns its error.
func (p *Provider) Ready(ctx context.Context) error {
	p.start()
	select {
	case <-p.readyCh:
	case <-ctx.Done():
		return errors.NotReady(p.opts.ConfigURI.String()).WithCause(ctx.Err())
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.loadErr
}

// Dispose stops watching the file and drops listeners.
func (p *Provider) Dispose() {
	p.cancel()
	if p.watch != nil {
		p.watch.Dispose()
	}
	p.changed.Dispose()
}

// key returns the key name is stored under in this file, or false when
// name belongs elsewhere. An empty key addresses the whole section.
func (p *Provider) key(name string) (string, bool) {
	if !p.opts.Section {
		return name, name != ""
	}
	if name == p.opts.ConfigName {
		return "", true
	}
	rest, ok := strings.CutPrefix(name, p.opts.ConfigName+".")
	return rest, ok && rest != ""
}

var pathEscaper = strings.NewReplacer(`\`, `\\`, ".", `\.`, "*", `\*`, "?", `\?`, "|", `\|`, "#", `\#`, "@", `\@`)

// SetPreference writes name to the file, creating it when needed. A nil
// value removes the key.
func (p *Provider) SetPreference(ctx context.Context, name string, value any, resource uri.URI) bool {
	p.start()
	if !p.Contains(resource) {
		return false
	}
	key, ok := p.key(name)
	if !ok {
		return false
	}

	p.ioMu.Lock()
	defer p.ioMu.Unlock()

	out, err := p.render(key, value)
	if err == nil {
		err = p.write(out)
	}
	if err != nil {
		p.log.Error("failed to write preference", logger.Fields(
			logger.FieldPreference, name,
			logger.FieldError, err.Error(),
		))
		return false
	}

	st, err := p.read()
	if err != nil {
		p.log.Error("failed to reload after write", logger.Fields(logger.FieldError, err.Error()))
		return false
	}
	p.apply(st)
	return true
}

// render returns the file content with key set to value.
func (p *Provider) render(key string, value any) ([]byte, error) {
	if key == "" {
		if value == nil {
			return []byte("{}\n"), nil
		}
		if _, ok := value.(map[string]any); !ok {
			return nil, errors.InvalidInput(p.opts.ConfigName, "section content must be an object")
		}
		raw, err := json.Marshal(value)
		if err != nil {
			return nil, err
		}
		return pretty.Pretty(raw), nil
	}

	raw, err := afero.ReadFile(p.fs, p.path())
	fresh := false
	switch {
	case stderrors.Is(err, fs.ErrNotExist):
		raw, fresh = []byte("{}"), true
	case err != nil:
		return nil, errors.ReadFailed(p.path(), err)
	}
	raw = jsonc.ToJSON(raw)
	if len(bytes.TrimSpace(raw)) == 0 {
		raw, fresh = []byte("{}"), true
	}
	if !gjson.ValidBytes(raw) {
		return nil, errors.ParseFailed(p.path(), fmt.Errorf("refusing to overwrite invalid JSON"))
	}

	path := pathEscaper.Replace(key)
	if value == nil {
		raw, err = sjson.DeleteBytes(raw, path)
	} else {
		raw, err = sjson.SetBytes(raw, path, value)
	}
	if err != nil {
		return nil, err
	}
	if fresh {
		raw = pretty.Pretty(raw)
	}
	return raw, nil
}

func (p *Provider) write(data []byte) error {
	if err := p.fs.MkdirAll(filepath.Dir(p.path()), 0o755); err != nil {
		return errors.WriteFailed(p.path(), err)
	}
	if err := afero.WriteFile(p.fs, p.path(), data, 0o644); err != nil {
		return errors.WriteFailed(p.path(), err)
	}
	return nil
}
