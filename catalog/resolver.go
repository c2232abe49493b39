package catalog

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/RainOrigami/ModIoManager/modio"
)

// ProgressFunc receives a progress update at every phase transition of a
// resolver operation. total == 0 means the total is not known yet.
type ProgressFunc func(message string, current, total int)

func noProgress(string, int, int) {}

// Resolver answers catalog queries against a shared cache, fetching missing
// records from mod.io and recursively resolving dependency closures. All
// operations are safe to invoke concurrently against the same cache; the only
// shared state is the cache, which only grows.
type Resolver struct {
	gameID int
	client *modio.Client
	cache  *Cache
}

// NewResolver creates a resolver for the given game with an empty cache.
func NewResolver(client *modio.Client, gameID int) *Resolver {
	return &Resolver{
		gameID: gameID,
		client: client,
		cache:  NewCache(),
	}
}

// Cache returns the resolver's cache.
func (r *Resolver) Cache() *Cache {
	return r.cache
}

// GetModByID returns the mod with the given id, fetching it and its
// dependency closure if it is not cached yet. Returns (nil, nil) when the
// remote record does not exist.
func (r *Resolver) GetModByID(ctx context.Context, id int, progress ProgressFunc) (*modio.Mod, error) {
	if progress == nil {
		progress = noProgress
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	progress(fmt.Sprintf("Loading mod UGC%d", id), 0, 1)

	if mod, ok := r.cache.Get(id); ok {
		progress(fmt.Sprintf("Loading mod %s", mod.Name), 1, 1)
		return mod, nil
	}

	mod, err := r.client.GetMod(ctx, r.gameID, id)
	if err != nil {
		if errors.Is(err, modio.ErrNotFound) {
			progress(fmt.Sprintf("Loading mod UGC%d", id), 1, 1)
			return nil, nil
		}
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	mod.DependencyModIDs = []int{}
	mod = r.cache.GetOrInsert(mod)
	progress(fmt.Sprintf("Loading mod %s", mod.Name), 1, 1)

	if mod.Dependencies {
		if err := r.resolveClosure(ctx, mod, progress); err != nil {
			return nil, err
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return mod, nil
}

// GetModsByIDs returns the records for the given id set, fetching the missing
// ones in concurrent fixed-size chunks and resolving the dependency closure
// of every newly fetched record. Repeated ids are idempotent; if every id is
// already cached no network call is made.
func (r *Resolver) GetModsByIDs(ctx context.Context, ids []int, progress ProgressFunc) ([]*modio.Mod, error) {
	if progress == nil {
		progress = noProgress
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ids = dedupeIDs(ids)
	loadMsg := fmt.Sprintf("Loading %d mods", len(ids))
	progress(loadMsg, 0, len(ids))

	var found []*modio.Mod
	var missing []int
	for _, id := range ids {
		if mod, ok := r.cache.Get(id); ok {
			found = append(found, mod)
		} else {
			missing = append(missing, id)
		}
	}

	if len(missing) == 0 {
		progress(loadMsg, 1, 1)
		return found, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// The id filter goes into a query parameter whose length the server may
	// reject, so oversized requests are chunked up front rather than letting
	// them fail.
	chunks := chunkIDs(missing, r.client.Limit)
	pagesMsg := fmt.Sprintf("Loading %d mod pages", len(chunks))
	progress(pagesMsg, 0, len(chunks))

	var mu sync.Mutex
	var loaded []*modio.Mod

	g, gctx := errgroup.WithContext(ctx)
	for index, chunk := range chunks {
		g.Go(func() error {
			progress(pagesMsg, index+1, len(chunks))

			page, err := r.client.GetModsByIDs(gctx, r.gameID, chunk, 0)
			if err != nil {
				return err
			}

			// Merge as the chunk completes. Insert-if-absent keeps the
			// final cache state independent of completion order.
			for i := range page.Data {
				mod := &page.Data[i]
				mod.DependencyModIDs = []int{}
				canonical := r.cache.GetOrInsert(mod)

				mu.Lock()
				loaded = append(loaded, canonical)
				mu.Unlock()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var withDeps []*modio.Mod
	for _, mod := range loaded {
		if mod.Dependencies {
			withDeps = append(withDeps, mod)
		}
	}
	progress(fmt.Sprintf("Resolving dependencies of %d mods", len(withDeps)), 0, 0)

	g, gctx = errgroup.WithContext(ctx)
	for _, mod := range withDeps {
		g.Go(func() error {
			return r.resolveClosure(gctx, mod, progress)
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return append(found, loaded...), nil
}

// GetSubscribedMods returns all mods the authenticated user is subscribed to
// for this game, fully paginated and merged into the cache with their
// dependency closures resolved. Returns (nil, nil) when no API token is
// configured; subscriptions are a token-gated capability, not an error.
func (r *Resolver) GetSubscribedMods(ctx context.Context, progress ProgressFunc) ([]*modio.Mod, error) {
	if progress == nil {
		progress = noProgress
	}
	if !r.client.HasToken() {
		return nil, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	progress("Loading subscribed mods", 0, 0)
	subscribed, err := loadAllPages(ctx, r.client.Limit, func(page int) (modio.Page[modio.Mod], error) {
		return r.client.GetSubscribedMods(ctx, r.gameID, page)
	}, progress, "Loading subscribed mods")
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Insert new records, then look every id up again so callers get the
	// canonical cached instance rather than the wire-deserialized one.
	mods := make([]*modio.Mod, 0, len(subscribed))
	for i := range subscribed {
		mod := &subscribed[i]
		mod.DependencyModIDs = []int{}
		canonical := r.cache.GetOrInsert(mod)
		canonical.Subscribed = true
		mods = append(mods, canonical)
	}

	var withDeps []*modio.Mod
	for _, mod := range mods {
		if mod.Dependencies {
			withDeps = append(withDeps, mod)
		}
	}
	progress(fmt.Sprintf("Resolving dependencies of %d mods", len(withDeps)), 0, 0)

	g, gctx := errgroup.WithContext(ctx)
	for _, mod := range withDeps {
		g.Go(func() error {
			return r.resolveClosure(gctx, mod, progress)
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return mods, nil
}

// GetDependencies returns the resolved dependency records of a mod. Returns
// an empty result when the mod has no dependencies.
func (r *Resolver) GetDependencies(ctx context.Context, mod *modio.Mod, progress ProgressFunc) ([]*modio.Mod, error) {
	if progress == nil {
		progress = noProgress
	}
	if mod == nil || !mod.Dependencies {
		return nil, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	progress(fmt.Sprintf("Resolving dependencies for %s", mod.Name), 0, 0)
	if err := r.resolveClosure(ctx, mod, progress); err != nil {
		return nil, err
	}

	return r.GetModsByIDs(ctx, mod.DependencyModIDs, progress)
}

// loadDependencyIDs paginates the dependency endpoint of a mod and stores the
// resulting ids on the record. No-op when the mod has no dependencies.
func (r *Resolver) loadDependencyIDs(ctx context.Context, mod *modio.Mod, progress ProgressFunc) error {
	if !mod.Dependencies {
		return nil
	}

	message := fmt.Sprintf("Loading dependencies for %s", mod.Name)
	progress(message, 0, 0)

	dependencies, err := loadAllPages(ctx, r.client.Limit, func(page int) (modio.Page[modio.Dependency], error) {
		return r.client.GetDependencies(ctx, r.gameID, mod.ID, page)
	}, progress, message)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	ids := make([]int, len(dependencies))
	for i, dependency := range dependencies {
		ids[i] = dependency.ModID
	}
	mod.DependencyModIDs = ids
	return nil
}

// resolveClosure ensures the transitive dependency set of a mod is present in
// the cache. It fetches the dependency id list if not yet loaded, then
// recurses through GetModsByIDs on the ids still missing. The cache check in
// GetModsByIDs guarantees every id is fetched at most once, so the traversal
// terminates on diamond-shaped graphs and cycles alike.
func (r *Resolver) resolveClosure(ctx context.Context, mod *modio.Mod, progress ProgressFunc) error {
	if !mod.Dependencies {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	if len(mod.DependencyModIDs) == 0 {
		if err := r.loadDependencyIDs(ctx, mod, progress); err != nil {
			return err
		}
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	unresolved := r.cache.Missing(mod.DependencyModIDs)
	if len(unresolved) == 0 {
		return nil
	}

	progress(fmt.Sprintf("Resolving dependencies for %s", mod.Name), 0, 0)
	_, err := r.GetModsByIDs(ctx, unresolved, progress)
	return err
}

// loadAllPages fetches successive pages starting at 0 until the whole result
// set is accumulated, checking cancellation before each request. The reported
// total page count stays 0 until the first response reveals result_total.
func loadAllPages[T any](ctx context.Context, limit int, fetch func(page int) (modio.Page[T], error), progress ProgressFunc, message string) ([]T, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var data []T
	totalPages := 0
	for page := 0; ; page++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		progress(message, page+1, totalPages)

		response, err := fetch(page)
		if err != nil {
			return nil, err
		}
		data = append(data, response.Data...)

		if response.ResultLimit <= 0 {
			break
		}
		totalPages = (response.ResultTotal + response.ResultLimit - 1) / response.ResultLimit
		if (page+1)*response.ResultLimit >= response.ResultTotal {
			break
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return data, nil
}

// dedupeIDs removes repeated ids, preserving first-seen order.
func dedupeIDs(ids []int) []int {
	seen := make(map[int]struct{}, len(ids))
	unique := make([]int, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		unique = append(unique, id)
	}
	return unique
}

// chunkIDs splits ids into chunks of at most size elements.
func chunkIDs(ids []int, size int) [][]int {
	if size <= 0 {
		size = modio.DefaultLimit
	}

	var chunks [][]int
	for len(ids) > 0 {
		n := min(size, len(ids))
		chunks = append(chunks, ids[:n])
		ids = ids[n:]
	}
	return chunks
}
