// Package ranking loads the three gallery rankings side by side and filters
// them locally.
package ranking

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/graphia/graphia-server/internal/domain"
	apperr "github.com/graphia/graphia-server/internal/errors"
	"github.com/graphia/graphia-server/internal/gateway"
	"github.com/graphia/graphia-server/internal/i18n"
)

// Category names one of the three rankings.
type Category int

// Rankings in display order.
const (
	Artifacts Category = iota
	Tags
	Prompts
)

// Key is the category's display name.
func (c Category) Key() i18n.Key {
	switch c {
	case Artifacts:
		return i18n.RankingArtifacts
	case Tags:
		return i18n.RankingTags
	default:
		return i18n.RankingPrompts
	}
}

func (c Category) String() string {
	switch c {
	case Artifacts:
		return "artifacts"
	case Tags:
		return "tags"
	default:
		return "prompts"
	}
}

// Lists holds one complete set of rankings.
type Lists struct {
	Artifacts []domain.RankedArtifact `json:"artifacts"`
	Tags      []domain.TagRanking     `json:"tags"`
	Prompts   []domain.PromptRanking  `json:"prompts"`
}

// LoadError reports which rankings failed. Any failure fails the whole load.
type LoadError struct {
	Failed []Category
	Errs   []error
}

func (e *LoadError) Error() string {
	names := make([]string, len(e.Failed))
	for i, c := range e.Failed {
		names[i] = c.String()
	}
	return fmt.Sprintf("load rankings (%s): %v", strings.Join(names, ", "), errors.Join(e.Errs...))
}

func (e *LoadError) Unwrap() []error {
	return append([]error{apperr.ErrLoadFailed}, e.Errs...)
}

// Localize names the failed rankings, in display order.
func (e *LoadError) Localize(tag language.Tag) string {
	names := make([]string, len(e.Failed))
	for i, c := range e.Failed {
		names[i] = i18n.Text(tag, c.Key())
	}
	return i18n.Text(tag, i18n.RankingsPartialFailed, strings.Join(names, i18n.Separator(tag)))
}

// View loads the ranking page. Each Load is a complete fetch; retrying a
// failed load is another call to Load.
type View struct {
	rankings gateway.Rankings
	logger   *slog.Logger
	limit    int
}

// NewView creates a view showing gateway.RankingLimit rows per ranking.
func NewView(rankings gateway.Rankings, logger *slog.Logger) *View {
	return &View{rankings: rankings, logger: logger, limit: gateway.RankingLimit}
}

// Load fetches all three rankings in parallel. Siblings are not canceled when
// one fails, so the error names every failed category. No partial lists are
// returned.
func (v *View) Load(ctx context.Context) (*Lists, error) {
	var (
		lists Lists
		errs  [3]error
		g     errgroup.Group
	)

	g.Go(func() error {
		lists.Artifacts, errs[Artifacts] = v.rankings.RankArtifactsByViews(ctx, v.limit)
		return nil
	})
	g.Go(func() error {
		lists.Tags, errs[Tags] = v.rankings.RankTags(ctx, v.limit)
		return nil
	})
	g.Go(func() error {
		lists.Prompts, errs[Prompts] = v.rankings.RankPrompts(ctx, v.limit)
		return nil
	})
	_ = g.Wait()

	var loadErr *LoadError
	for c, err := range errs {
		if err == nil {
			continue
		}
		if loadErr == nil {
			loadErr = &LoadError{}
		}
		loadErr.Failed = append(loadErr.Failed, Category(c))
		loadErr.Errs = append(loadErr.Errs, err)
	}
	if loadErr != nil {
		v.logger.Error("load rankings failed", "error", loadErr)
		return nil, loadErr
	}

	lists.normalize()
	return &lists, nil
}

func (l *Lists) normalize() {
	if l.Artifacts == nil {
		l.Artifacts = []domain.RankedArtifact{}
	}
	if l.Tags == nil {
		l.Tags = []domain.TagRanking{}
	}
	if l.Prompts == nil {
		l.Prompts = []domain.PromptRanking{}
	}
}

func (l *Lists) clone() *Lists {
	return &Lists{
		Artifacts: append([]domain.RankedArtifact{}, l.Artifacts...),
		Tags:      append([]domain.TagRanking{}, l.Tags...),
		Prompts:   append([]domain.PromptRanking{}, l.Prompts...),
	}
}

// Filter keeps the rows whose text contains term under Unicode case folding:
// artifacts by title or owner email, tags by tag, prompts by prompt name.
// An empty term returns a copy of every list; whitespace is matched literally.
// Ranks are left as loaded.
func (l *Lists) Filter(term string) *Lists {
	if term == "" {
		return l.clone()
	}
	fold := cases.Fold()
	needle := fold.String(term)
	match := func(s string) bool {
		return strings.Contains(fold.String(s), needle)
	}

	out := &Lists{
		Artifacts: []domain.RankedArtifact{},
		Tags:      []domain.TagRanking{},
		Prompts:   []domain.PromptRanking{},
	}
	for _, a := range l.Artifacts {
		if match(a.Title) || match(a.Email) {
			out.Artifacts = append(out.Artifacts, a)
		}
	}
	for _, t := range l.Tags {
		if match(t.Tag) {
			out.Tags = append(out.Tags, t)
		}
	}
	for _, p := range l.Prompts {
		if match(p.PromptName) {
			out.Prompts = append(out.Prompts, p)
		}
	}
	return out
}

// EmptyKey is the message shown when c has no rows after filtering.
func EmptyKey(c Category) i18n.Key {
	switch c {
	case Artifacts:
		return i18n.RankingNoArtifacts
	case Tags:
		return i18n.RankingNoTags
	default:
		return i18n.RankingNoPrompts
	}
}
