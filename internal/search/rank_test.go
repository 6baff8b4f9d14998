package search

import (
	"reflect"
	"testing"

	"renovo/internal/core"
)

func TestTokenize(t *testing.T) {
	got := Tokenize("  Paint, paint & BRUSHES-2 ")
	want := []string{"paint", "brushes", "2"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	if len(Tokenize(" ,. ")) != 0 {
		t.Fatal("expected no tokens")
	}
}

func TestRank(t *testing.T) {
	vendor := "Paint Depot"
	desc := "for the paint job"
	expenses := []core.Expense{
		{ID: 1, Title: "Tiles", Description: &desc, ExpenseDate: core.NewDate(2024, 1, 1)},
		{ID: 2, Title: "Paint", ExpenseDate: core.NewDate(2024, 1, 1)},
		{ID: 3, Title: "Brushes", VendorName: &vendor, ExpenseDate: core.NewDate(2024, 1, 1)},
		{ID: 4, Title: "Grout", ExpenseDate: core.NewDate(2024, 1, 1)},
		{ID: 5, Title: "Repaint hallway", ExpenseDate: core.NewDate(2024, 2, 1)},
	}

	got := Rank(expenses, "paint", 10)
	var ids []int64
	for _, e := range got {
		ids = append(ids, e.ID)
	}
	// exact title 3+1+2, substring-only title 3, vendor 2, description 1
	want := []int64{2, 5, 3, 1}
	if !reflect.DeepEqual(ids, want) {
		t.Fatalf("got %v, want %v", ids, want)
	}

	if got := Rank(expenses, "paint", 2); len(got) != 2 {
		t.Fatalf("limit not applied: %d", len(got))
	}
}

func TestRankTieBreak(t *testing.T) {
	expenses := []core.Expense{
		{ID: 1, Title: "Sink", ExpenseDate: core.NewDate(2024, 1, 1)},
		{ID: 2, Title: "Sink", ExpenseDate: core.NewDate(2024, 3, 1)},
		{ID: 3, Title: "Sink", ExpenseDate: core.NewDate(2024, 3, 1)},
	}
	got := Rank(expenses, "sink", 0)
	if got[0].ID != 3 || got[1].ID != 2 || got[2].ID != 1 {
		t.Fatalf("unexpected order %d %d %d", got[0].ID, got[1].ID, got[2].ID)
	}
}
