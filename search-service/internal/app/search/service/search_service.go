package service

import (
	"context"
	"errors"
	"slices"
	"strings"

	"facetsearch/pkg/logger"
	"facetsearch/pkg/metrics"
	"facetsearch/search-service/internal/app/search/entity"
	"facetsearch/search-service/internal/app/search/repository"

	"golang.org/x/sync/errgroup"
)

const (
	DefaultMaxPageSize      = 100
	DefaultFetchConcurrency = 8
)

// FilterResolver превращает выбранные id значений в значения фасетов категории
type FilterResolver interface {
	ResolveFilterIDs(ctx context.Context, categoryID *int64, ids []int64) ([]entity.ResolvedFilterValue, int, error)
}

type SearchOptions struct {
	MaxPageSize int
	// FetchConcurrency ограничивает число одновременных запросов к хранилищу на один поиск
	FetchConcurrency int
}

// SearchService - планировщик фасетного поиска и сборщик страницы
type SearchService struct {
	categoryRepo    repository.CategoryRepository
	productRepo     repository.ProductRepository
	attributionRepo repository.AttributionRepository
	resolver        FilterResolver
	opts            SearchOptions
}

func NewSearchService(
	categoryRepo repository.CategoryRepository,
	productRepo repository.ProductRepository,
	attributionRepo repository.AttributionRepository,
	resolver FilterResolver,
	opts SearchOptions,
) *SearchService {
	if opts.MaxPageSize <= 0 {
		opts.MaxPageSize = DefaultMaxPageSize
	}
	if opts.FetchConcurrency <= 0 {
		opts.FetchConcurrency = DefaultFetchConcurrency
	}

	return &SearchService{
		categoryRepo:    categoryRepo,
		productRepo:     productRepo,
		attributionRepo: attributionRepo,
		resolver:        resolver,
		opts:            opts,
	}
}

// Search пересекает активные товары с категорией, текстом и всеми выбранными фильтрами (AND),
// сортирует по id и отдает запрошенную страницу вместе с общим числом совпадений
func (s *SearchService) Search(ctx context.Context, req entity.SearchRequest) (*entity.SearchResult, error) {
	timer := metrics.NewTimer()

	result, err := s.search(ctx, req)

	metrics.SearchDuration.Observe(timer.Seconds())
	metrics.SearchRequests.WithLabelValues(searchOutcome(result, err)).Inc()

	return result, err
}

func (s *SearchService) search(ctx context.Context, req entity.SearchRequest) (*entity.SearchResult, error) {
	if err := s.validate(req); err != nil {
		return nil, err
	}

	if req.SelectedCategoryID != nil {
		exists, err := s.categoryRepo.Exists(ctx, *req.SelectedCategoryID)
		if err != nil {
			return nil, fetchError(ctx, "check category", err)
		}
		if !exists {
			return emptyResult(), nil
		}
	}

	filters, dropped, err := s.resolver.ResolveFilterIDs(ctx, req.SelectedCategoryID, req.FilterIDs)
	if err != nil {
		return nil, fetchError(ctx, "resolve filters", err)
	}
	if dropped > 0 {
		metrics.SearchDroppedFilters.Add(float64(dropped))
		logger.Debug().
			Int("dropped", dropped).
			Ints64("filter_ids", req.FilterIDs).
			Msg("Ignoring filters outside of selected category")
	}
	metrics.SearchFiltersApplied.Observe(float64(len(filters)))

	ids, err := s.plan(ctx, req, filters)
	if err != nil {
		return nil, err
	}
	metrics.SearchCandidates.Observe(float64(len(ids)))

	page := Paginate(ids, req.CurrentPage, req.ItemsPerPage)
	products, err := s.hydrate(ctx, page)
	if err != nil {
		return nil, err
	}

	return &entity.SearchResult{Products: products, TotalProducts: len(ids)}, nil
}

func (s *SearchService) validate(req entity.SearchRequest) error {
	if req.CurrentPage <= 0 {
		return validationError("current_page must be positive, got %d", req.CurrentPage)
	}
	if req.ItemsPerPage <= 0 {
		return validationError("items_per_page must be positive, got %d", req.ItemsPerPage)
	}
	if req.ItemsPerPage > s.opts.MaxPageSize {
		return validationError("items_per_page must not exceed %d", s.opts.MaxPageSize)
	}
	return nil
}

// plan параллельно выбирает множества id для каждого предиката и пересекает их
// Результат упорядочен по возрастанию id
func (s *SearchService) plan(ctx context.Context, req entity.SearchRequest, filters []entity.ResolvedFilterValue) ([]int64, error) {
	fetches := []func(context.Context) ([]int64, error){
		s.productRepo.AllActiveIDs,
	}

	if req.SelectedCategoryID != nil {
		categoryID := *req.SelectedCategoryID
		fetches = append(fetches, func(ctx context.Context) ([]int64, error) {
			return s.productRepo.IDsInCategory(ctx, categoryID)
		})
	}

	if query := strings.TrimSpace(req.SearchQuery); query != "" {
		fetches = append(fetches, func(ctx context.Context) ([]int64, error) {
			return s.productRepo.IDsMatchingText(ctx, query)
		})
	}

	for _, f := range filters {
		fetches = append(fetches, s.filterFetch(f))
	}

	sets := make([][]int64, len(fetches))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.FetchConcurrency)
	for i, fetch := range fetches {
		g.Go(func() error {
			ids, err := fetch(gctx)
			if err != nil {
				return err
			}
			sets[i] = ids
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, fetchError(ctx, "fetch candidates", err)
	}

	return intersect(sets[0], sets[1:]...), nil
}

func (s *SearchService) filterFetch(f entity.ResolvedFilterValue) func(context.Context) ([]int64, error) {
	if spec, ok := f.Spec.(entity.Ranged); ok {
		return func(ctx context.Context) ([]int64, error) {
			return s.attributionRepo.ProductIDsByRange(ctx, f.DescriptionID, spec.Min, spec.Max)
		}
	}

	return func(ctx context.Context) ([]int64, error) {
		return s.attributionRepo.ProductIDsByFilter(ctx, f.ID)
	}
}

// hydrate подгружает товары страницы в порядке ids.
// Товар, снятый с продажи между выборкой id и загрузкой, выпадает из страницы;
// totalProducts при этом не пересчитывается и страница выходит короче
func (s *SearchService) hydrate(ctx context.Context, ids []int64) ([]entity.Product, error) {
	if len(ids) == 0 {
		return []entity.Product{}, nil
	}

	products, err := s.productRepo.FetchByIDs(ctx, ids)
	if err != nil {
		return nil, fetchError(ctx, "fetch products", err)
	}
	if products == nil {
		products = []entity.Product{}
	}

	return products, nil
}

// intersect оставляет из base только id, присутствующие во всех others
// Повторы схлопываются, результат отсортирован по возрастанию
func intersect(base []int64, others ...[]int64) []int64 {
	candidates := slices.Clone(base)
	slices.Sort(candidates)
	candidates = slices.Compact(candidates)

	for _, other := range others {
		if len(candidates) == 0 {
			break
		}

		members := make(map[int64]struct{}, len(other))
		for _, id := range other {
			members[id] = struct{}{}
		}

		candidates = slices.DeleteFunc(candidates, func(id int64) bool {
			_, ok := members[id]
			return !ok
		})
	}

	if candidates == nil {
		return []int64{}
	}
	return candidates
}

// fetchError различает истекший дедлайн вызывающего и сбой хранилища
func fetchError(ctx context.Context, op string, err error) error {
	if ctx.Err() != nil || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return &Error{Kind: ErrTimeout, Reason: op, Err: err}
	}

	var svcErr *Error
	if errors.As(err, &svcErr) {
		return err
	}
	return storeError(op, err)
}

func emptyResult() *entity.SearchResult {
	return &entity.SearchResult{Products: []entity.Product{}, TotalProducts: 0}
}

func searchOutcome(result *entity.SearchResult, err error) string {
	switch {
	case err == nil && result.TotalProducts == 0:
		return "empty"
	case err == nil:
		return "ok"
	case errors.Is(err, ErrValidation):
		return "invalid"
	case errors.Is(err, ErrTimeout):
		return "timeout"
	default:
		return "error"
	}
}
