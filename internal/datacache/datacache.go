// Package datacache fetches the API datasets the site ships as static snapshots and writes
// them to the configured storage.
package datacache

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/tarkov-dev/site/internal/cache"
	"github.com/tarkov-dev/site/internal/storage"
	"github.com/tarkov-dev/site/pkg/core"
)

// DefaultLanguage is the language the full datasets are fetched in.
const DefaultLanguage = "en"

// DefaultLanguages are the locales the translated name tables are built for. English is
// not among them; the full datasets already carry DefaultLanguage names.
var DefaultLanguages = []string{
	"cs", "de", "es", "fr", "hu", "it", "ja", "pl", "pt", "ru", "sk", "tr", "zh",
}

// maxLocaleFetches bounds the concurrent per-language requests.
const maxLocaleFetches = 4

// Fetcher is the subset of the API client the job needs.
type Fetcher interface {
	Items(ctx context.Context, lang string) ([]core.Item, error)
	ItemNames(ctx context.Context, lang string) ([]core.Item, error)
	Barters(ctx context.Context) ([]core.Barter, error)
	Crafts(ctx context.Context) ([]core.Craft, error)
	Traders(ctx context.Context, lang string) ([]core.Trader, error)
	Maps(ctx context.Context, lang string) ([]core.MapData, error)
	Quests(ctx context.Context) ([]core.Quest, error)
}

// Recorder receives one measurement per dataset.
type Recorder interface {
	RecordCacheRun(ctx context.Context, dataset string, records int, took time.Duration, err error)
}

// Dependencies holds all dependencies for a Job.
type Dependencies struct {
	API      Fetcher
	Writer   storage.Writer
	Logger   *slog.Logger
	Recorder Recorder
}

// Dataset names reported by a run.
const (
	DatasetItems   = "items"
	DatasetBarters = "barters"
	DatasetCrafts  = "crafts"
	DatasetTraders = "traders"
	DatasetMaps    = "maps"
	DatasetQuests  = "quests"
)

// Result is the outcome of one dataset.
type Result struct {
	Dataset  string        `json:"dataset"`
	Records  int           `json:"records"`
	Duration time.Duration `json:"duration"`
	Err      error         `json:"-"`
}

// Report is the outcome of one run, ordered by dataset name.
type Report struct {
	Started  time.Time     `json:"started"`
	Duration time.Duration `json:"duration"`
	Results  []Result      `json:"results"`
}

// Failed returns the datasets that did not complete.
func (r Report) Failed() []Result {
	var out []Result
	for _, res := range r.Results {
		if res.Err != nil {
			out = append(out, res)
		}
	}
	return out
}

// Job runs the cache refresh. Every dataset is a single attempt.
type Job struct {
	deps      Dependencies
	log       *slog.Logger
	languages []string
	now       func() time.Time

	itemNames   *cache.LocaleTable
	traderNames *cache.LocaleTable
}

// New creates a job for the given locales; an empty list selects DefaultLanguages.
func New(deps Dependencies, languages []string) (*Job, error) {
	if deps.API == nil {
		return nil, errors.New("datacache: API client is required")
	}
	if deps.Writer == nil {
		return nil, errors.New("datacache: writer is required")
	}
	if len(languages) == 0 {
		languages = DefaultLanguages
	}
	log := deps.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Job{
		deps:        deps,
		log:         log,
		languages:   slices.Clone(languages),
		now:         time.Now,
		itemNames:   cache.NewLocaleTable(),
		traderNames: cache.NewLocaleTable(),
	}, nil
}

// ItemNames returns the item name table filled by the last run.
func (j *Job) ItemNames() *cache.LocaleTable { return j.itemNames }

// TraderNames returns the trader name table filled by the last run.
func (j *Job) TraderNames() *cache.LocaleTable { return j.traderNames }

// Run fetches all datasets in parallel. A failing dataset does not stop the others;
// the first error is returned after every branch finished.
func (j *Job) Run(ctx context.Context) (Report, error) {
	report := Report{Started: j.now()}
	j.itemNames.Reset()
	j.traderNames.Reset()

	var mu sync.Mutex
	var g errgroup.Group

	branches := []struct {
		name string
		run  func(context.Context) (int, error)
	}{
		{DatasetItems, j.cacheItems},
		{DatasetBarters, j.cacheBarters},
		{DatasetCrafts, j.cacheCrafts},
		{DatasetTraders, j.cacheTraders},
		{DatasetMaps, j.cacheMaps},
		{DatasetQuests, j.cacheQuests},
	}
	for _, b := range branches {
		g.Go(func() error {
			start := time.Now()
			n, err := b.run(ctx)
			took := time.Since(start)

			if err != nil {
				j.log.Error("error caching dataset", "dataset", b.name, "error", err)
			} else {
				j.log.Info("cached dataset", "dataset", b.name, "records", n, "took", took)
			}
			if j.deps.Recorder != nil {
				j.deps.Recorder.RecordCacheRun(ctx, b.name, n, took, err)
			}

			mu.Lock()
			report.Results = append(report.Results, Result{Dataset: b.name, Records: n, Duration: took, Err: err})
			mu.Unlock()
			return err
		})
	}

	err := g.Wait()
	slices.SortFunc(report.Results, func(a, b Result) int {
		return cmp.Compare(a.Dataset, b.Dataset)
	})
	report.Duration = j.now().Sub(report.Started)
	j.log.Info("cache run finished", "took", report.Duration, "failed", len(report.Failed()))
	return report, err
}

func (j *Job) cacheItems(ctx context.Context) (int, error) {
	items, err := j.deps.API.Items(ctx, DefaultLanguage)
	if err != nil {
		return 0, err
	}
	items = PrepareItems(items)
	if err := j.deps.Writer.WriteDocument(ctx, storage.DocItems, items); err != nil {
		return 0, fmt.Errorf("write items: %w", err)
	}

	err = j.fetchLocales(ctx, j.itemNames, func(ctx context.Context, lang string) (map[string]core.LocalizedName, error) {
		named, err := j.deps.API.ItemNames(ctx, lang)
		if err != nil {
			return nil, err
		}
		names := make(map[string]core.LocalizedName, len(named))
		for _, it := range named {
			names[it.ID] = core.LocalizedName{Name: it.Name, ShortName: it.ShortName}
		}
		return names, nil
	})
	if err != nil {
		return len(items), err
	}
	if err := j.deps.Writer.WriteDocument(ctx, storage.DocItemsLocale, j.itemNames.Snapshot()); err != nil {
		return len(items), fmt.Errorf("write item locales: %w", err)
	}
	return len(items), nil
}

func (j *Job) cacheBarters(ctx context.Context) (int, error) {
	barters, err := j.deps.API.Barters(ctx)
	if err != nil {
		return 0, err
	}
	for i := range barters {
		barters[i].RewardItems = PrepareContained(barters[i].RewardItems)
		barters[i].RequiredItems = PrepareContained(barters[i].RequiredItems)
		barters[i].Cached = true
	}
	if err := j.deps.Writer.WriteDocument(ctx, storage.DocBarters, barters); err != nil {
		return 0, fmt.Errorf("write barters: %w", err)
	}
	return len(barters), nil
}

func (j *Job) cacheCrafts(ctx context.Context) (int, error) {
	crafts, err := j.deps.API.Crafts(ctx)
	if err != nil {
		return 0, err
	}
	for i := range crafts {
		crafts[i].RewardItems = PrepareContained(crafts[i].RewardItems)
		crafts[i].RequiredItems = PrepareContained(crafts[i].RequiredItems)
		crafts[i].Cached = true
	}
	if err := j.deps.Writer.WriteDocument(ctx, storage.DocCrafts, crafts); err != nil {
		return 0, fmt.Errorf("write crafts: %w", err)
	}
	return len(crafts), nil
}

func (j *Job) cacheTraders(ctx context.Context) (int, error) {
	traders, err := j.deps.API.Traders(ctx, DefaultLanguage)
	if err != nil {
		return 0, err
	}
	if err := j.deps.Writer.WriteDocument(ctx, storage.DocTraders, traders); err != nil {
		return 0, fmt.Errorf("write traders: %w", err)
	}

	err = j.fetchLocales(ctx, j.traderNames, func(ctx context.Context, lang string) (map[string]core.LocalizedName, error) {
		localized, err := j.deps.API.Traders(ctx, lang)
		if err != nil {
			return nil, err
		}
		names := make(map[string]core.LocalizedName, len(localized))
		for _, tr := range localized {
			names[tr.ID] = core.LocalizedName{Name: tr.Name}
		}
		return names, nil
	})
	if err != nil {
		return len(traders), err
	}
	if err := j.deps.Writer.WriteDocument(ctx, storage.DocTradersLocale, j.traderNames.Snapshot()); err != nil {
		return len(traders), fmt.Errorf("write trader locales: %w", err)
	}
	return len(traders), nil
}

func (j *Job) cacheMaps(ctx context.Context) (int, error) {
	maps, err := j.deps.API.Maps(ctx, DefaultLanguage)
	if err != nil {
		return 0, err
	}
	if err := j.deps.Writer.WriteDocument(ctx, storage.DocMaps, maps); err != nil {
		return 0, fmt.Errorf("write maps: %w", err)
	}
	return len(maps), nil
}

func (j *Job) cacheQuests(ctx context.Context) (int, error) {
	quests, err := j.deps.API.Quests(ctx)
	if err != nil {
		return 0, err
	}
	if err := j.deps.Writer.WriteDocument(ctx, storage.DocQuests, quests); err != nil {
		return 0, fmt.Errorf("write quests: %w", err)
	}
	return len(quests), nil
}

// fetchLocales fills table with one entry per configured language. Languages that fail
// are left out and reported together.
func (j *Job) fetchLocales(
	ctx context.Context,
	table *cache.LocaleTable,
	fetch func(ctx context.Context, lang string) (map[string]core.LocalizedName, error),
) error {
	var mu sync.Mutex
	var errs []error

	var g errgroup.Group
	g.SetLimit(maxLocaleFetches)
	for _, lang := range j.languages {
		g.Go(func() error {
			names, err := fetch(ctx, lang)
			if err != nil {
				mu.Lock()
				errs = append(errs, fmt.Errorf("%s: %w", lang, err))
				mu.Unlock()
				return nil
			}
			table.SetLanguage(lang, names)
			return nil
		})
	}
	_ = g.Wait()
	return errors.Join(errs...)
}
