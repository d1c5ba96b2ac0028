// Package app is the application layer, the only component that references
// multiple domain collaborators. It wraps engine operations with snapshot
// persistence, event publishing, and metrics.
package app
