package products

import (
	"strconv"
	"strings"

	"github.com/geocoder89/catalog/internal/domain/product"
)

const (
	listKeyPrefix = "products:list:v1:"
	itemKeyPrefix = "products:item:v1:"
)

// listCacheKey expects a filter that already went through WithDefaults
// and ParseOrder, so equal queries share a key.
func listCacheKey(f product.ListFilter) string {
	return listKeyPrefix +
		"perPage=" + strconv.Itoa(f.PerPage) +
		":page=" + strconv.Itoa(f.Page) +
		":orderBy=" + f.OrderBy +
		":order=" + f.Order +
		":search=" + strings.ToLower(f.Search)
}

func itemCacheKey(id int64) string {
	return itemKeyPrefix + strconv.FormatInt(id, 10)
}
