// Package cache keeps clip payloads close: an in-memory LRU (L1) over a
// zstd-compressed disk store (L2) that survives restarts. Entries are keyed
// by language and clip id.
package cache
