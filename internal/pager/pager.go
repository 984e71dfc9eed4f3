package pager

import (
	"github.com/skalibog/bfpv/pkg/models"
)

// DefaultPageSize размер страницы таблицы прогнозов по умолчанию
const DefaultPageSize = 8

// Cursor позиция пагинации: индекс страницы и ее размер
type Cursor struct {
	PageIndex int
	PageSize  int
}

// NewCursor создает курсор на первой странице
func NewCursor(pageSize int) Cursor {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return Cursor{PageIndex: 0, PageSize: pageSize}
}

// Page видимая часть серии
type Page struct {
	Visible   []models.PredictionPoint
	PageIndex int
	PageCount int
}

// PageCount возвращает количество страниц для серии длины length
func PageCount(length, pageSize int) int {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if length <= 0 {
		return 0
	}
	return (length + pageSize - 1) / pageSize
}

// Paginate вычисляет видимую страницу. Индекс за пределами [0, pageCount)
// прижимается к ближайшей допустимой странице.
func Paginate(series models.PredictionSeries, cur Cursor) Page {
	size := cur.PageSize
	if size <= 0 {
		size = DefaultPageSize
	}

	count := PageCount(series.Len(), size)
	if count == 0 {
		return Page{Visible: []models.PredictionPoint{}, PageIndex: 0, PageCount: 0}
	}

	idx := clamp(cur.PageIndex, count)
	lo := idx * size
	hi := lo + size
	if hi > series.Len() {
		hi = series.Len()
	}

	return Page{
		Visible:   series.Slice(lo, hi),
		PageIndex: idx,
		PageCount: count,
	}
}

// Next переходит на следующую страницу, не выходя за последнюю
func (c Cursor) Next(pageCount int) Cursor {
	c.PageIndex = clamp(c.PageIndex+1, pageCount)
	return c
}

// Prev переходит на предыдущую страницу
func (c Cursor) Prev(pageCount int) Cursor {
	c.PageIndex = clamp(c.PageIndex-1, pageCount)
	return c
}

// First переходит на первую страницу
func (c Cursor) First() Cursor {
	c.PageIndex = 0
	return c
}

// Last переходит на последнюю страницу
func (c Cursor) Last(pageCount int) Cursor {
	c.PageIndex = clamp(pageCount-1, pageCount)
	return c
}

func clamp(idx, count int) int {
	if count <= 0 || idx < 0 {
		return 0
	}
	if idx >= count {
		return count - 1
	}
	return idx
}
