// Package provider resolves preferences across the folders of a workspace.
//
// Every folder root gets one Provider per configuration path and logical
// config name (settings, launch, tasks under .theia and .vscode by default).
// The Registry keeps that set in step with the workspace roots. The Manager
// answers reads and writes for a resource by selecting the most specific
// folder containing it and combining that folder's providers.
//
// # Reads
//
// Providers of the selected folder are grouped by logical config name. Groups
// are visited in precedence order, the default name first and sections after,
// and the first provider in each group that yields a value contributes it.
// Contributions are deep merged with later groups winning:
//
//	reg := provider.NewRegistry(ws, jsonfile.NewFactory(), preference.DefaultConfigurations())
//	if err := reg.Start(ctx); err != nil {
//	    return err
//	}
//	mgr := provider.NewManager(reg)
//	res := mgr.Resolve(ctx, "editor.tabSize", uri.FromPath("/src/app/main.go"))
//
// # Writes
//
// SetPreference tries providers of the target config name in three tiers:
// those whose file exists, those sharing the configuration path of the
// first provider that has a file, and finally all of them.
//
// # Middleware
//
// Providers created by the registry can be decorated:
//
//	reg := provider.NewRegistry(ws, factory, configs,
//	    provider.WithMiddleware(
//	        provider.WithLogging(log),
//	        provider.WithMetrics(metrics),
//	        provider.WithTracing("prefkit"),
//	    ),
//	)
package provider
