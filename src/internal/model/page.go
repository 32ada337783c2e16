package model

import "math"

const MaxPageSize = 100

// maxOffset bounds (page-1)*limit so huge page numbers read as past the end.
const maxOffset = math.MaxInt32

// Pagination is a 1-based page with a size clamped to [1, MaxPageSize].
type Pagination struct {
	Page  int
	Limit int
}

func NewPagination(page, limit, defaultLimit int) Pagination {
	if page < 1 {
		page = 1
	}
	if limit == 0 {
		limit = defaultLimit
	}
	if limit < 1 {
		limit = 1
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	if page-1 > maxOffset/limit {
		page = maxOffset/limit + 1
	}
	return Pagination{Page: page, Limit: limit}
}

func (p Pagination) Offset() int {
	return (p.Page - 1) * p.Limit
}

type Page[T any] struct {
	Items []T `json:"items"`
	Total int `json:"total"`
	Page  int `json:"page"`
	Pages int `json:"pages"`
}

func NewPage[T any](items []T, total int, p Pagination) Page[T] {
	if items == nil {
		items = []T{}
	}
	pages := (total + p.Limit - 1) / p.Limit
	if pages < 1 {
		pages = 1
	}
	return Page[T]{Items: items, Total: total, Page: p.Page, Pages: pages}
}
