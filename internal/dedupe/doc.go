// Package dedupe provides a TTL key-value cache used to deduplicate
// identical submissions within a configurable window.
package dedupe
