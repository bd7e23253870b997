// Package infra groups the adapters behind the core triage interfaces:
// the Postgres and in-memory stores, the Gemini generator, the Nominatim
// geocoder with its redis cache, MQTT dispatch notices, metrics sinks and
// Sentry. Core packages never import infra.
package infra
