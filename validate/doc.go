// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

// Package validate checks submissions against one shared rule set, which is
// also served to clients so their pre-checks match the server.
package validate
