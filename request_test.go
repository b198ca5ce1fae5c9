package stateset

import (
	"testing"
)

func TestListOptionsValues(t *testing.T) {
	opts := NewListOptions().
		Limit(25).
		Cursor("cur_abc").
		SortBy("created_at", SortDescending).
		Expand("customer").
		Expand("items").
		Param("status", "open")

	values := opts.Values()

	if got := values.Get("limit"); got != "25" {
		t.Errorf("limit = %q", got)
	}
	if got := values.Get("cursor"); got != "cur_abc" {
		t.Errorf("cursor = %q", got)
	}
	if got := values.Get("sort_by"); got != "created_at" {
		t.Errorf("sort_by = %q", got)
	}
	if got := values.Get("sort_direction"); got != "desc" {
		t.Errorf("sort_direction = %q", got)
	}
	if got := values["expand[]"]; len(got) != 2 || got[0] != "customer" || got[1] != "items" {
		t.Errorf("expand[] = %v", got)
	}
	if got := values.Get("status"); got != "open" {
		t.Errorf("status = %q", got)
	}
}

func TestListOptionsZeroValue(t *testing.T) {
	values := NewListOptions().Values()
	if len(values) != 0 {
		t.Errorf("empty options produced %v", values)
	}

	var opts *ListOptions
	if got := opts.Values(); len(got) != 0 {
		t.Errorf("nil options produced %v", got)
	}
}

func TestListOptionsSortWithoutDirection(t *testing.T) {
	values := NewListOptions().SortBy("name", "").Values()
	if got := values.Get("sort_by"); got != "name" {
		t.Errorf("sort_by = %q", got)
	}
	if values.Has("sort_direction") {
		t.Error("sort_direction should be omitted when empty")
	}
}
