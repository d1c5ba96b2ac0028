// Package domain contains the sentiment fee engine: a bounded, EMA-smoothed
// market sentiment score with keeper-gated updates, staleness fallback, and a
// deterministic integer fee derivation. The engine does no I/O; persistence
// and notification delivery live in the adapters.
package domain
