// Halcyon - Emotion-Adaptive Wellness Recommendation Engine
// Copyright 2026 Halcyon Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/halcyonlabs/halcyon

/*
Package config loads and validates the daemon configuration.

Sources layer in fixed precedence: built-in defaults, then an optional
YAML file (halcyon.yaml, or the path in HALCYON_CONFIG), then HALCYON_*
environment variables. Engine packages own their config types; this
package only assembles and converts, so scoring weight tables and
notification rate limits are deployment data rather than code.
*/
package config
