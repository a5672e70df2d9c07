package models

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// A PATCH body must distinguish absent fields, explicit nulls and values.
func TestFormUpdate_ThreePatchStates(t *testing.T) {
	raw := `{"name":"renamed","description":null,"allowedOrigins":["https://a.com"]}`

	var patch FormUpdate
	if err := json.Unmarshal([]byte(raw), &patch); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if !patch.Name.Set || !patch.Name.Valid || patch.Name.Value != "renamed" {
		t.Fatalf("name = %+v, want present value", patch.Name)
	}
	if !patch.Description.Set || patch.Description.Valid {
		t.Fatalf("description = %+v, want explicit null", patch.Description)
	}
	if patch.RedirectURL.Set {
		t.Fatalf("redirectUrl = %+v, want absent", patch.RedirectURL)
	}
	if diff := cmp.Diff([]string{"https://a.com"}, patch.AllowedOrigins.Value); diff != "" {
		t.Fatalf("allowedOrigins mismatch (-want +got):\n%s", diff)
	}
}

func TestNewPagination_CeilMath(t *testing.T) {
	cases := []struct {
		total int64
		limit int
		pages int64
	}{
		{0, 10, 0},
		{1, 10, 1},
		{10, 10, 1},
		{11, 10, 2},
		{25, 10, 3},
	}
	for _, tc := range cases {
		p := NewPagination(1, tc.limit, tc.total)
		if p.TotalPages != tc.pages {
			t.Errorf("total=%d limit=%d: totalPages = %d, want %d", tc.total, tc.limit, p.TotalPages, tc.pages)
		}
	}
}
