// Package diffcache classifies resync notifications into structural
// changes.
//
// A resync says "something at or below this path changed" without saying
// whether an element appeared, disappeared, or was merely rebuilt. Cache
// keeps a mirror of the document hierarchy and, on each Update, compares it
// against the live document to split the resynced paths into added, removed
// and modified sets:
//
//	c := diffcache.New(doc)
//	c.Update(notice.ResyncedPaths())
//	added, removed, modified := c.Drain()
//
// Results accumulate across updates. A path that is added and later removed
// before the results are drained ends up in removed only; one that is
// removed and later recreated ends up in added.
package diffcache
