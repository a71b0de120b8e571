// Package resilience retries operations that fail transiently, such as
// reading a configuration file while an editor is still writing it.
//
//	data, err := resilience.Retry(ctx, resilience.ReloadRetryConfig(), func() ([]byte, error) {
//	    return load(path)
//	})
package resilience
