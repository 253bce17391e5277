package pipeline

import (
	"regexp"

	"github.com/wondersell/wildsearch-indexer/internal/types"
)

// maxWBIDLength is the threshold past which wb_id is treated as a
// timestamp artifact rather than a real article (spec.md §4.5).
const maxWBIDLength = 20

var catalogArticleRe = regexp.MustCompile(`/catalog/(\d{1,20})/detail\.aspx`)

// guessArticle extracts the SKU's natural key from an item. It is pure and
// idempotent: it reads only WBID and ProductURL, matching spec.md §8's
// invariant 5.
func guessArticle(item types.Item) (string, error) {
	if len(item.WBID) <= maxWBIDLength {
		return item.WBID, nil
	}

	m := catalogArticleRe.FindStringSubmatch(item.ProductURL)
	if m == nil {
		return "", &types.ArticleInferenceError{WBID: item.WBID, ProductURL: item.ProductURL}
	}
	return m[1], nil
}

// truncateTitle trims name to the schema's title column width.
func truncateTitle(name string) string {
	r := []rune(name)
	if len(r) <= types.MaxTitleLength {
		return name
	}
	return string(r[:types.MaxTitleLength])
}
