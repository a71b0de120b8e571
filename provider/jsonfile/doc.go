// Package jsonfile provides preferences stored in JSON files with comments.
//
// Each provider serves one file. The default config file exposes its top
// level keys as preferences; a section file such as launch.json is exposed
// under its section name, so "launch.configurations" reads the
// "configurations" key of launch.json.
//
//	factory := jsonfile.NewFactory(
//	    jsonfile.WithWatcher(w),
//	    jsonfile.WithLogger(logger.Get("jsonfile")),
//	)
//	reg := provider.NewRegistry(ws, factory, configs)
package jsonfile
