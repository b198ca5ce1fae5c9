package stateset

import (
	"net/url"
	"strconv"
)

// Sort directions accepted by list endpoints.
const (
	SortAscending  = "asc"
	SortDescending = "desc"
)

// ListOptions builds the query parameters accepted by list endpoints.
// The zero value sends no parameters; methods chain.
type ListOptions struct {
	limit         int
	page          int
	cursor        string
	sortBy        string
	sortDirection string
	expand        []string
	params        url.Values
}

// NewListOptions returns an empty options builder.
func NewListOptions() *ListOptions {
	return &ListOptions{}
}

// Limit caps the number of items per page.
func (o *ListOptions) Limit(limit int) *ListOptions {
	o.limit = limit
	return o
}

// Page selects a page for offset-based endpoints.
func (o *ListOptions) Page(page int) *ListOptions {
	o.page = page
	return o
}

// Cursor resumes listing from an opaque cursor.
func (o *ListOptions) Cursor(cursor string) *ListOptions {
	o.cursor = cursor
	return o
}

// SortBy orders results by the given field.
func (o *ListOptions) SortBy(field, direction string) *ListOptions {
	o.sortBy = field
	o.sortDirection = direction
	return o
}

// Expand asks the server to inline the named relation.
func (o *ListOptions) Expand(relation string) *ListOptions {
	o.expand = append(o.expand, relation)
	return o
}

// Param adds an arbitrary query parameter, such as a filter.
func (o *ListOptions) Param(key, value string) *ListOptions {
	if o.params == nil {
		o.params = url.Values{}
	}
	o.params.Add(key, value)
	return o
}

// Values renders the options as query parameters.
func (o *ListOptions) Values() url.Values {
	values := url.Values{}
	if o == nil {
		return values
	}
	for key, vs := range o.params {
		for _, v := range vs {
			values.Add(key, v)
		}
	}
	if o.limit > 0 {
		values.Set("limit", strconv.Itoa(o.limit))
	}
	if o.page > 0 {
		values.Set("page", strconv.Itoa(o.page))
	}
	if o.cursor != "" {
		values.Set("cursor", o.cursor)
	}
	if o.sortBy != "" {
		values.Set("sort_by", o.sortBy)
		if o.sortDirection != "" {
			values.Set("sort_direction", o.sortDirection)
		}
	}
	for _, relation := range o.expand {
		values.Add("expand[]", relation)
	}
	return values
}
