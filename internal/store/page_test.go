package store

import "testing"

func TestPageRequestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   PageRequest
		want PageRequest
	}{
		{
			"zero value gets defaults",
			PageRequest{},
			PageRequest{Page: 1, Limit: 10, Sort: SortByDate, Order: SortDesc},
		},
		{
			"valid values kept",
			PageRequest{Page: 3, Limit: 25, Sort: SortByOrder, Order: SortAsc},
			PageRequest{Page: 3, Limit: 25, Sort: SortByOrder, Order: SortAsc},
		},
		{
			"unknown sort falls back to date",
			PageRequest{Page: 1, Limit: 10, Sort: "amount", Order: SortAsc},
			PageRequest{Page: 1, Limit: 10, Sort: SortByDate, Order: SortAsc},
		},
		{
			"unknown order falls back to desc",
			PageRequest{Page: 1, Limit: 10, Sort: SortByDate, Order: "sideways"},
			PageRequest{Page: 1, Limit: 10, Sort: SortByDate, Order: SortDesc},
		},
		{
			"negative page and limit get defaults",
			PageRequest{Page: -1, Limit: -5},
			PageRequest{Page: 1, Limit: 10, Sort: SortByDate, Order: SortDesc},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.in.Normalize(); got != tt.want {
				t.Errorf("Normalize() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestNewPageInfo(t *testing.T) {
	req := PageRequest{Page: 2, Limit: 10, Sort: SortByDate, Order: SortDesc}
	info := NewPageInfo(25, req)

	if info.TotalCount != 25 {
		t.Errorf("TotalCount = %d, want 25", info.TotalCount)
	}
	if info.TotalPages != 3 {
		t.Errorf("TotalPages = %d, want 3", info.TotalPages)
	}
	if info.CurrentPage != 2 {
		t.Errorf("CurrentPage = %d, want 2", info.CurrentPage)
	}
	if !info.HasNextPage || !info.HasPreviousPage {
		t.Errorf("middle page should have neighbors on both sides: %+v", info)
	}
	if info.NextPage == nil || *info.NextPage != 3 {
		t.Errorf("NextPage = %v, want 3", info.NextPage)
	}
	if info.PreviousPage == nil || *info.PreviousPage != 1 {
		t.Errorf("PreviousPage = %v, want 1", info.PreviousPage)
	}
}

func TestNewPageInfoEmpty(t *testing.T) {
	info := NewPageInfo(0, PageRequest{Page: 1, Limit: 10})

	if info.TotalPages != 0 {
		t.Errorf("TotalPages = %d, want 0", info.TotalPages)
	}
	if info.HasNextPage || info.HasPreviousPage {
		t.Errorf("empty set should have no neighbor pages: %+v", info)
	}
	if info.NextPage != nil || info.PreviousPage != nil {
		t.Errorf("nil page pointers expected: %+v", info)
	}
}

func TestSlicePage(t *testing.T) {
	all := []int{1, 2, 3, 4, 5, 6, 7}

	page := SlicePage(all, PageRequest{Page: 2, Limit: 3})
	if len(page.Results) != 3 || page.Results[0] != 4 {
		t.Errorf("page 2 results = %v, want [4 5 6]", page.Results)
	}

	page = SlicePage(all, PageRequest{Page: 3, Limit: 3})
	if len(page.Results) != 1 || page.Results[0] != 7 {
		t.Errorf("last page results = %v, want [7]", page.Results)
	}
	if page.PageInfo.HasNextPage {
		t.Error("last page should have no next page")
	}

	// Past the end: empty results, metadata intact.
	page = SlicePage(all, PageRequest{Page: 9, Limit: 3})
	if len(page.Results) != 0 {
		t.Errorf("out-of-range page should be empty, got %v", page.Results)
	}
	if page.PageInfo.TotalCount != 7 {
		t.Errorf("TotalCount = %d, want 7", page.PageInfo.TotalCount)
	}
}

func TestSlicePageConcatenation(t *testing.T) {
	all := make([]int, 23)
	for i := range all {
		all[i] = i
	}

	req := PageRequest{Page: 1, Limit: 5}
	var got []int
	for {
		page := SlicePage(all, req)
		got = append(got, page.Results...)
		if !page.PageInfo.HasNextPage {
			break
		}
		req.Page = *page.PageInfo.NextPage
	}

	if len(got) != len(all) {
		t.Fatalf("concatenated pages have %d items, want %d", len(got), len(all))
	}
	for i := range all {
		if got[i] != all[i] {
			t.Fatalf("item %d = %d, want %d", i, got[i], all[i])
		}
	}
}
