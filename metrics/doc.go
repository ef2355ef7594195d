// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package metrics exposes Prometheus collectors for the prediction service.

	m := metrics.NewManager()
	mux.Handle("GET /metrics", m.Handler())

Collectors live on a private registry (plus the Go and process collectors), so
tests can create as many managers as they like. Every Record method is a no-op
on a nil *Manager.
*/
package metrics
