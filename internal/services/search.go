package services

import (
	"context"
	"fmt"

	"renovo/internal/core"
	"renovo/internal/search"
)

type SearchService struct{ *deps }

// Search ranks title, vendor and description matches for the term.
func (s *SearchService) Search(ctx context.Context, q core.SearchQuery) ([]core.Expense, error) {
	q.Normalize()
	if err := q.Validate(); err != nil {
		return nil, err
	}
	if q.ProjectID != nil {
		if _, err := s.store.GetProject(ctx, *q.ProjectID); err != nil {
			return nil, err
		}
	}
	tokens := search.Tokenize(q.SearchTerm)
	if len(tokens) == 0 {
		return []core.Expense{}, nil
	}
	candidates, err := s.store.SearchCandidates(ctx, tokens, q.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("search expenses: %w", err)
	}
	return search.Rank(candidates, q.SearchTerm, q.Limit), nil
}
