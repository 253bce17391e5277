// Package types holds the data model shared by the store gateway, the
// dictionary resolver, the bulk loader and the chunked pipeline: the sparse
// item record streamed from the Item Source, the dictionary and fact
// entities persisted per marketplace, and the dump lifecycle.
package types

import "time"

// Item is the sparse key/value bag delivered by the Item Source for one
// crawled product observation. Every recognized field is optional except
// ProductURL and ProductName, mirroring the "duck-typed item bag" the
// original crawler export used; unknown keys are dropped by the source
// adapter before an Item ever reaches the pipeline.
type Item struct {
	WBID        string // raw wb_id, may be a timestamp artifact — see guessArticle
	ProductURL  string // required
	ProductName string // required

	ParseDate *time.Time // parse_date, localized to UTC

	CategoryURL      *string
	CategoryName     *string // defaults to CategoryURL when absent
	CategoryPosition *int

	BrandURL  *string
	BrandName *string

	SellerURL  *string
	SellerName *string

	Price   *float64
	Rating  *float64
	Sales   *int
	Reviews *int // empty string on the wire normalizes to 0, never nil once parsed

	// Features holds the first element of the source's features array:
	// one Parameter fact per entry, keyed by parameter name.
	Features map[string]string
}

// JobMetadata is the Item Source's per-job metadata contract, used to
// initialize a new Dump's timestamps and items_crawled exactly once.
type JobMetadata struct {
	RunningTimeMS  int64
	FinishedTimeMS int64
	ItemsCrawled   int
}
