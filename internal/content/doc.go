// Package content defines the item model, category rules, and the capability
// interfaces shared by sources, the probe, the aggregator, and the cache.
package content
