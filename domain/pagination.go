package domain

import (
	"math"
	"strconv"
)

const (
	DefaultPage  = 1
	DefaultLimit = 20
	MaxLimit     = 100
)

// Page is a normalized pagination request: Number >= 1 and 1 <= Limit <= max.
type Page struct {
	Number int
	Limit  int
}

func (p Page) Skip() int {
	return (p.Number - 1) * p.Limit
}

// NormalizePage parses raw query values, falling back to defaults on anything invalid.
func NormalizePage(rawPage, rawLimit string, defaultLimit, maxLimit int) Page {
	if defaultLimit <= 0 {
		defaultLimit = DefaultLimit
	}
	if maxLimit <= 0 {
		maxLimit = MaxLimit
	}
	page, err := strconv.Atoi(rawPage)
	if err != nil || page < 1 {
		page = DefaultPage
	}
	limit, err := strconv.Atoi(rawLimit)
	if err != nil || limit < 1 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	// Keep Skip() from overflowing
	if page > math.MaxInt/limit {
		page = math.MaxInt / limit
	}
	return Page{Number: page, Limit: limit}
}

type Pagination struct {
	Total       int  `json:"total"`
	Page        int  `json:"page"`
	Pages       int  `json:"pages"`
	Limit       int  `json:"limit"`
	HasNextPage bool `json:"hasNextPage"`
	HasPrevPage bool `json:"hasPrevPage"`
}

type PaginatedMessages struct {
	Data       []Message  `json:"data"`
	Pagination Pagination `json:"pagination"`
}

func NewPagination(total int, page Page) Pagination {
	pages := 0
	if page.Limit > 0 {
		pages = (total + page.Limit - 1) / page.Limit
	}
	return Pagination{
		Total:       total,
		Page:        page.Number,
		Pages:       pages,
		Limit:       page.Limit,
		HasNextPage: page.Number < pages,
		HasPrevPage: page.Number > 1,
	}
}
