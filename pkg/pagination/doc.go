// Package pagination walks paginated LIMS listings and fans out individual
// GETs across a bounded worker pool.
//
// LIMS listings embed a next-page element carrying the uri of the following
// page. The Harvester follows those cursors in a loop until a page arrives
// without one:
//
//	h := pagination.NewHarvester(fetcher, pagination.DefaultConfig())
//	frags, err := h.Harvest(ctx, host+"containers", "container")
//
// Resource families without a batch/retrieve endpoint are fetched one GET
// per uri. The Dispatcher runs those GETs on MaxConcurrency workers and hands
// the bodies back in input order:
//
//	d := pagination.NewDispatcher(fetcher, pagination.DefaultConfig())
//	results, err := d.FetchAll(ctx, uris)
//
// Both stop at the first failed fetch and return no partial data. The
// Dispatcher cancels the shared context so queued uris are never requested
// and in-flight siblings are abandoned.
package pagination
