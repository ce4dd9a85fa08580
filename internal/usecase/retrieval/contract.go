package retrieval

import (
	"context"

	"github.com/Lbridge2222/bridge-fullstack-sub000/internal/domain"
	"github.com/Lbridge2222/bridge-fullstack-sub000/internal/repository/knowledge"
)

// searchRepo is the consumer interface over the document store adapter.
type searchRepo interface {
	Search(ctx context.Context, p knowledge.Params) ([]domain.Candidate, bool, error)
}

// expander proposes alternate phrasings for a weak-evidence query.
type expander interface {
	Expand(ctx context.Context, q domain.Query) []string
}
