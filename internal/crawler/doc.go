// Package crawler walks a website breadth-first from a seed URL,
// bounded by depth, page count, and same-host scope. Fetched pages flow
// through content extraction and the audit rule battery; every fetch
// attempt, successful or not, becomes exactly one page record. Fetch
// failures degrade to failed records rather than aborting the crawl.
package crawler
