package bootstrap

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/afero"

	"github.com/kbukum/prefkit/component"
	"github.com/kbukum/prefkit/config"
	"github.com/kbukum/prefkit/event"
	"github.com/kbukum/prefkit/logger"
	"github.com/kbukum/prefkit/observability"
	"github.com/kbukum/prefkit/preference"
	"github.com/kbukum/prefkit/provider"
	"github.com/kbukum/prefkit/provider/jsonfile"
	"github.com/kbukum/prefkit/server"
	"github.com/kbukum/prefkit/sse"
	"github.com/kbukum/prefkit/version"
	"github.com/kbukum/prefkit/watcher"
	"github.com/kbukum/prefkit/workspace"
)

// App is a wired prefkit process.
type App struct {
	Name       string
	Settings   *config.Settings
	Logger     *logger.Logger
	Components *component.Registry
	Metrics    *observability.Metrics

	Bus       *event.Bus
	Workspace *workspace.Service
	Watcher   *watcher.Watcher
	Registry  *provider.Registry
	Manager   *provider.Manager

	// Set by EnableServer.
	SSE    *sse.Component
	Server *server.Server

	fs              afero.Fs
	gracefulTimeout time.Duration
	bridges         []event.Disposable
	telemetry       []func(context.Context) error

	onStart []Hook
	onReady []Hook
	onStop  []Hook
}

// New validates settings and builds the engine. Nothing runs until Run or
// RunTask.
func New(settings *config.Settings, opts ...Option) (*App, error) {
	settings.ApplyDefaults()
	if err := settings.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	o := resolveOptions(opts)
	a := &App{
		Name:            settings.Name,
		Settings:        settings,
		Components:      component.NewRegistry(),
		fs:              o.fs,
		gracefulTimeout: 15 * time.Second,
	}
	if o.gracefulTimeout != nil {
		a.gracefulTimeout = *o.gracefulTimeout
	}
	if o.logger != nil {
		a.Logger = o.logger
	} else {
		logger.Init(&settings.Logging)
		a.Logger = logger.GetGlobalLogger()
	}
	if a.fs == nil {
		a.fs = afero.NewOsFs()
	}

	folders, err := a.openFolders()
	if err != nil {
		return nil, err
	}
	a.Workspace = workspace.NewService(workspace.WithFolders(folders...), workspace.WithLogger(a.Logger.WithComponent("workspace")))
	a.Metrics = observability.DefaultMetrics()
	a.Bus = event.NewBus(a.Logger.WithComponent("bus"))

	factory := o.factory
	if factory == nil {
		if !settings.Watcher.Disabled {
			a.Watcher, err = watcher.New(
				watcher.WithDebounce(settings.Watcher.Debounce),
				watcher.WithLogger(a.Logger.WithComponent("watcher")),
			)
			if err != nil {
				return nil, err
			}
		}
		fopts := []jsonfile.Option{jsonfile.WithFS(a.fs), jsonfile.WithLogger(a.Logger.WithComponent("jsonfile"))}
		if a.Watcher != nil {
			fopts = append(fopts, jsonfile.WithWatcher(a.Watcher))
		}
		factory = jsonfile.NewFactory(fopts...)
	}

	middleware := []provider.Middleware{
		provider.WithLogging(a.Logger.WithComponent("provider")),
		provider.WithMetrics(a.Metrics),
	}
	if settings.Observability.Enabled {
		middleware = append(middleware, provider.WithTracing(settings.Observability.ServiceName))
	}

	a.Registry = provider.NewRegistry(a.Workspace, factory, settings.Preferences.Configurations(),
		provider.WithMiddleware(middleware...),
		provider.WithRegistryLogger(a.Logger.WithComponent("registry")),
		provider.WithRegistryMetrics(a.Metrics),
	)
	a.Manager = provider.NewManager(a.Registry,
		provider.WithManagerLogger(a.Logger.WithComponent("manager")),
		provider.WithManagerMetrics(a.Metrics),
	)

	a.bridges = append(a.bridges,
		a.Manager.OnChanged(func(cs preference.ChangeSet) { a.publish(event.TopicPreferencesChanged, cs) }),
		a.Workspace.OnChanged(func(f []workspace.Folder) { a.publish(event.TopicRootsChanged, f) }),
	)

	components := []component.Component{a.Workspace}
	if a.Watcher != nil {
		components = append(components, a.Watcher)
	}
	components = append(components, a.Registry)
	for _, c := range components {
		if err := a.Components.Register(c); err != nil {
			return nil, err
		}
	}
	return a, nil
}

func (a *App) openFolders() ([]workspace.Folder, error) {
	ws := a.Settings.Workspace
	if ws.File != "" {
		return workspace.OpenWorkspaceFile(a.fs, ws.File)
	}
	return workspace.OpenFolders(ws.Folders...)
}

func (a *App) publish(topic string, payload any) {
	if err := a.Bus.Publish(topic, payload); err != nil {
		a.Logger.Warn("event publish failed", logger.Fields("topic", topic, logger.FieldError, err.Error()))
	}
}

// EnableServer adds the SSE hub and the HTTP API to the components.
func (a *App) EnableServer() error {
	if a.Server != nil {
		return nil
	}
	a.SSE = sse.NewComponent(a.Bus, event.TopicPreferencesChanged, event.TopicRootsChanged)
	a.Server = server.New(a.Settings.Server, a.Logger.WithComponent("server"))
	a.Server.ApplyMiddleware()
	a.Server.RegisterDefaultEndpoints(a.Name, func(ctx context.Context) component.Report {
		return a.Components.Report(ctx, version.Get().Short())
	})
	server.NewAPI(a.Manager, a.Workspace, a.SSE.Hub()).Mount(a.Server)

	if err := a.Components.Register(a.SSE); err != nil {
		return err
	}
	return a.Components.Register(server.NewComponent(a.Server))
}

// ReadyCheck reports components that are not healthy.
func (a *App) ReadyCheck(ctx context.Context) error {
	report := a.Components.Report(ctx, "")
	if report.Status == component.StatusHealthy {
		return nil
	}
	var unhealthy []string
	for _, h := range report.Components {
		if h.Status != component.StatusHealthy {
			detail := h.Name + "=" + string(h.Status)
			if h.Message != "" {
				detail += "(" + h.Message + ")"
			}
			unhealthy = append(unhealthy, detail)
		}
	}
	return fmt.Errorf("components not healthy: %v", unhealthy)
}

// Run starts everything and blocks until a shutdown signal or ctx ends.
func (a *App) Run(ctx context.Context) error {
	if err := a.startup(ctx); err != nil {
		return err
	}
	a.Logger.Info("prefkit ready, waiting for shutdown signal")
	a.WaitForSignal(ctx)
	return a.stop()
}

// RunTask starts everything, runs task and shuts down. A shutdown signal
// cancels the task's context.
func (a *App) RunTask(ctx context.Context, task func(ctx context.Context) error) error {
	if err := a.startup(ctx); err != nil {
		return err
	}

	taskCtx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	taskErr := task(taskCtx)
	if stopErr := a.stop(); stopErr != nil && taskErr == nil {
		return stopErr
	}
	return taskErr
}

func (a *App) startup(ctx context.Context) error {
	start := time.Now()
	a.Logger.Info("starting prefkit", logger.Fields("name", a.Name, "version", version.Get().Short()))

	if err := a.initTelemetry(ctx); err != nil {
		return err
	}
	if err := a.Components.StartAll(ctx); err != nil {
		a.shutdownTelemetry(context.Background())
		return fmt.Errorf("initialization failed: %w", err)
	}
	if err := runHooks(ctx, a.onStart); err != nil {
		_ = a.stop()
		return fmt.Errorf("onStart hook failed: %w", err)
	}

	if err := a.Registry.Ready(ctx); err != nil {
		_ = a.stop()
		return err
	}
	if err := a.Registry.ReadyErrors(); err != nil {
		a.Logger.Warn("some configuration files failed to load", logger.Fields(logger.FieldError, err.Error()))
	}
	if err := a.ReadyCheck(ctx); err != nil {
		a.Logger.Warn("ready check reported issues", logger.Fields(logger.FieldError, err.Error()))
	}

	if err := runHooks(ctx, a.onReady); err != nil {
		_ = a.stop()
		return fmt.Errorf("onReady hook failed: %w", err)
	}

	fields := logger.Fields(
		"roots", len(a.Workspace.TryGetRoots()),
		"providers", a.Registry.Len(),
		logger.FieldDuration, time.Since(start).Milliseconds(),
	)
	if a.Server != nil {
		fields["addr"] = a.Server.Addr()
	}
	a.Logger.Info("prefkit started", fields)
	return nil
}

func (a *App) initTelemetry(ctx context.Context) error {
	obs := a.Settings.Observability
	if !obs.Enabled {
		return nil
	}
	v := version.Get().Version
	tp, err := observability.InitTracer(ctx, obs.TracerConfig(v))
	if err != nil {
		return fmt.Errorf("tracer: %w", err)
	}
	a.telemetry = append(a.telemetry, tp.Shutdown)

	mp, err := observability.InitMeter(ctx, obs.MeterConfig(v))
	if err != nil {
		a.shutdownTelemetry(ctx)
		return fmt.Errorf("meter: %w", err)
	}
	a.telemetry = append(a.telemetry, mp.Shutdown)
	return nil
}

func (a *App) shutdownTelemetry(ctx context.Context) {
	for i := len(a.telemetry) - 1; i >= 0; i-- {
		if err := a.telemetry[i](ctx); err != nil {
			a.Logger.Warn("telemetry shutdown failed", logger.Fields(logger.FieldError, err.Error()))
		}
	}
	a.telemetry = nil
}

// WaitForSignal blocks until SIGINT/SIGTERM or ctx is done.
func (a *App) WaitForSignal(ctx context.Context) os.Signal {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	select {
	case sig := <-sigCh:
		a.Logger.Info("received shutdown signal", logger.Fields("signal", sig.String()))
		return sig
	case <-ctx.Done():
		a.Logger.Info("context canceled, shutting down")
		return nil
	}
}

// Shutdown stops the app when the caller manages the lifecycle itself.
func (a *App) Shutdown(_ context.Context) error {
	return a.stop()
}

func (a *App) stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), a.gracefulTimeout)
	defer cancel()

	var shutdownErr error
	if err := runHooks(ctx, a.onStop); err != nil {
		a.Logger.Error("onStop hook error", logger.Fields(logger.FieldError, err.Error()))
		shutdownErr = err
	}
	if err := a.Components.StopAll(ctx); err != nil {
		a.Logger.Error("shutdown completed with errors", logger.Fields(logger.FieldError, err.Error()))
		shutdownErr = err
	}
	for _, d := range a.bridges {
		d.Dispose()
	}
	a.bridges = nil
	if err := a.Bus.Close(); err != nil && shutdownErr == nil {
		shutdownErr = err
	}
	a.shutdownTelemetry(ctx)

	a.Logger.Info("prefkit stopped")
	return shutdownErr
}
