// Package component defines the lifecycle contract shared by the long-lived
// parts of a prefkit process and a registry that starts, stops and health
// checks them in order.
package component
