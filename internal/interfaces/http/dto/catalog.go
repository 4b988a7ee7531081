package dto

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/bimate/backend/internal/domain/catalog"
	"github.com/bimate/backend/internal/domain/shared"
)

// SearchGoodsRequest is the query of /search_goods
type SearchGoodsRequest struct {
	FilterType string `form:"filter_type" binding:"required,oneof=name id category_country name_country"`
	Query      string `form:"query" binding:"max=200"`
	Country    string `form:"country" binding:"max=100"`
	Category   string `form:"category" binding:"max=200"`
}

// ToFilter converts the request into a goods filter. For the id filter the
// query must be a number.
func (r SearchGoodsRequest) ToFilter() (catalog.GoodsFilter, error) {
	f := catalog.GoodsFilter{
		Type:     catalog.FilterType(r.FilterType),
		Country:  r.Country,
		Category: r.Category,
	}
	query := strings.TrimSpace(r.Query)
	if f.Type == catalog.FilterByID {
		id, err := strconv.ParseInt(query, 10, 64)
		if err != nil {
			return f, fmt.Errorf("%w: id must be a number", shared.ErrInvalidInput)
		}
		f.ID = id
		return f, nil
	}
	f.Name = query
	return f, nil
}

// ProductPageRequest is the query of /products
type ProductPageRequest struct {
	GoodID int64 `form:"good_id" binding:"omitempty,min=1"`
}

// ProductURI is the path of /api/v1/products/:id
type ProductURI struct {
	ID int64 `uri:"id" binding:"required,min=1"`
}
