package datacache

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tarkov-dev/site/internal/storage"
	"github.com/tarkov-dev/site/internal/storage/memory"
	"github.com/tarkov-dev/site/pkg/core"
)

var (
	trader = core.Vendor{Name: "Prapor", NormalizedName: "prapor"}
	flea   = core.Vendor{Name: "Flea Market", NormalizedName: core.FleaMarketVendor}
)

func salewa() core.Item {
	return core.Item{
		ID:           "544fb45d4bdc2dee738b4568",
		Name:         "Salewa first aid kit",
		ShortName:    "Salewa",
		LastLowPrice: 21000,
		Avg24hPrice:  22500,
		BuyFor: []core.ItemPrice{
			{Vendor: trader, Price: 25000, Currency: "RUB", PriceRUB: 25000},
			{Vendor: flea, Price: 21000, Currency: "RUB", PriceRUB: 21000},
		},
		SellFor: []core.ItemPrice{
			{Vendor: flea, Price: 20000, Currency: "RUB", PriceRUB: 20000},
			{Vendor: trader, Price: 9000, Currency: "RUB", PriceRUB: 9000},
		},
	}
}

type fakeAPI struct {
	mu       sync.Mutex
	langs    []string
	failOn   map[string]error
	failLang string
}

func (f *fakeAPI) fail(name string) error {
	if f.failOn == nil {
		return nil
	}
	return f.failOn[name]
}

func (f *fakeAPI) Items(_ context.Context, lang string) ([]core.Item, error) {
	if err := f.fail("items"); err != nil {
		return nil, err
	}
	return []core.Item{salewa()}, nil
}

func (f *fakeAPI) ItemNames(_ context.Context, lang string) ([]core.Item, error) {
	f.mu.Lock()
	f.langs = append(f.langs, lang)
	f.mu.Unlock()
	if lang == f.failLang {
		return nil, errors.New("locale unavailable")
	}
	return []core.Item{{ID: "544fb45d4bdc2dee738b4568", Name: "Salewa-" + lang, ShortName: "S-" + lang}}, nil
}

func (f *fakeAPI) Barters(context.Context) ([]core.Barter, error) {
	if err := f.fail("barters"); err != nil {
		return nil, err
	}
	return []core.Barter{{
		ID:            "b1",
		Trader:        core.TraderRef{ID: "t1", Name: "Prapor"},
		RewardItems:   []core.ContainedItem{{Item: salewa(), Count: 1}},
		RequiredItems: []core.ContainedItem{{Item: salewa(), Count: 2}},
	}}, nil
}

func (f *fakeAPI) Crafts(context.Context) ([]core.Craft, error) {
	if err := f.fail("crafts"); err != nil {
		return nil, err
	}
	return []core.Craft{{
		ID:          "c1",
		Station:     core.Station{ID: "s1", Name: "Medstation"},
		RewardItems: []core.ContainedItem{{Item: salewa(), Count: 1}},
	}}, nil
}

func (f *fakeAPI) Traders(_ context.Context, lang string) ([]core.Trader, error) {
	if err := f.fail("traders"); err != nil {
		return nil, err
	}
	return []core.Trader{{ID: "t1", Name: "Prapor-" + lang, NormalizedName: "prapor"}}, nil
}

func (f *fakeAPI) Maps(_ context.Context, lang string) ([]core.MapData, error) {
	if err := f.fail("maps"); err != nil {
		return nil, err
	}
	return []core.MapData{{ID: "m1", Name: "Customs", NormalizedName: "customs"}}, nil
}

func (f *fakeAPI) Quests(context.Context) ([]core.Quest, error) {
	if err := f.fail("quests"); err != nil {
		return nil, err
	}
	return []core.Quest{{ID: "q1", Name: "Debut"}}, nil
}

type recorded struct {
	dataset string
	records int
	err     error
}

type fakeRecorder struct {
	mu   sync.Mutex
	runs []recorded
}

func (r *fakeRecorder) RecordCacheRun(_ context.Context, dataset string, records int, _ time.Duration, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.runs = append(r.runs, recorded{dataset, records, err})
}

func newJob(t *testing.T, api *fakeAPI, langs []string) (*Job, *memory.Backend, *fakeRecorder) {
	t.Helper()
	store := memory.New()
	require.NoError(t, store.Init())
	rec := &fakeRecorder{}
	job, err := New(Dependencies{API: api, Writer: store, Recorder: rec}, langs)
	require.NoError(t, err)
	return job, store, rec
}

func TestNew_RequiresDependencies(t *testing.T) {
	_, err := New(Dependencies{Writer: memory.New()}, nil)
	assert.Error(t, err)
	_, err = New(Dependencies{API: &fakeAPI{}}, nil)
	assert.Error(t, err)

	job, err := New(Dependencies{API: &fakeAPI{}, Writer: memory.New()}, nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultLanguages, job.languages)
}

func TestPrepareItem(t *testing.T) {
	got := PrepareItem(salewa())

	assert.Zero(t, got.LastLowPrice)
	assert.Zero(t, got.Avg24hPrice)
	assert.True(t, got.Cached)
	require.Len(t, got.BuyFor, 1)
	assert.Equal(t, "prapor", got.BuyFor[0].Vendor.NormalizedName)
	require.Len(t, got.SellFor, 1)
	assert.Equal(t, 9000, got.SellFor[0].Price)
}

func TestPrepareItem_DoesNotMutateInput(t *testing.T) {
	in := salewa()
	_ = PrepareItem(in)
	assert.Len(t, in.BuyFor, 2)
	assert.Equal(t, 21000, in.LastLowPrice)
}

func TestPrepareItem_NilPrices(t *testing.T) {
	got := PrepareItem(core.Item{ID: "x"})
	assert.Nil(t, got.BuyFor)
	assert.Nil(t, got.SellFor)
}

func TestRun_DefaultLanguages(t *testing.T) {
	api := &fakeAPI{}
	job, store, _ := newJob(t, api, nil)
	ctx := context.Background()

	_, err := job.Run(ctx)
	require.NoError(t, err)

	want := []string{"cs", "de", "es", "fr", "hu", "it", "ja", "pl", "pt", "ru", "sk", "tr", "zh"}
	assert.Equal(t, want, DefaultLanguages)
	api.mu.Lock()
	assert.ElementsMatch(t, want, api.langs)
	api.mu.Unlock()

	var itemNames map[string]map[string]core.LocalizedName
	require.NoError(t, store.ReadDocument(ctx, storage.DocItemsLocale, &itemNames))
	assert.Len(t, itemNames, len(want))
	assert.Equal(t, "Salewa-zh", itemNames["zh"]["544fb45d4bdc2dee738b4568"].Name)
	assert.NotContains(t, itemNames, DefaultLanguage)
}

func TestRun_WritesAllDocuments(t *testing.T) {
	job, store, rec := newJob(t, &fakeAPI{}, []string{"en", "de"})
	ctx := context.Background()

	report, err := job.Run(ctx)
	require.NoError(t, err)
	assert.Empty(t, report.Failed())
	require.Len(t, report.Results, 6)
	assert.Equal(t, DatasetBarters, report.Results[0].Dataset)
	assert.Len(t, rec.runs, 6)

	var items []core.Item
	require.NoError(t, store.ReadDocument(ctx, storage.DocItems, &items))
	require.Len(t, items, 1)
	assert.True(t, items[0].Cached)
	assert.Zero(t, items[0].Avg24hPrice)
	assert.Len(t, items[0].BuyFor, 1)

	var itemNames map[string]map[string]core.LocalizedName
	require.NoError(t, store.ReadDocument(ctx, storage.DocItemsLocale, &itemNames))
	assert.Equal(t, core.LocalizedName{Name: "Salewa-de", ShortName: "S-de"}, itemNames["de"]["544fb45d4bdc2dee738b4568"])
	assert.Len(t, itemNames, 2)

	var barters []core.Barter
	require.NoError(t, store.ReadDocument(ctx, storage.DocBarters, &barters))
	require.Len(t, barters, 1)
	assert.True(t, barters[0].Cached)
	assert.True(t, barters[0].RequiredItems[0].Item.Cached)
	assert.Len(t, barters[0].RewardItems[0].Item.SellFor, 1)

	var crafts []core.Craft
	require.NoError(t, store.ReadDocument(ctx, storage.DocCrafts, &crafts))
	require.Len(t, crafts, 1)
	assert.True(t, crafts[0].Cached)
	assert.Zero(t, crafts[0].RewardItems[0].Item.LastLowPrice)

	var traders []core.Trader
	require.NoError(t, store.ReadDocument(ctx, storage.DocTraders, &traders))
	assert.Equal(t, "Prapor-en", traders[0].Name)

	var traderNames map[string]map[string]core.LocalizedName
	require.NoError(t, store.ReadDocument(ctx, storage.DocTradersLocale, &traderNames))
	assert.Equal(t, "Prapor-de", traderNames["de"]["t1"].Name)

	var maps []core.MapData
	require.NoError(t, store.ReadDocument(ctx, storage.DocMaps, &maps))
	assert.Equal(t, "customs", maps[0].NormalizedName)

	var quests []core.Quest
	require.NoError(t, store.ReadDocument(ctx, storage.DocQuests, &quests))
	assert.Equal(t, "Debut", quests[0].Name)

	name, ok := job.ItemNames().Get("en", "544fb45d4bdc2dee738b4568")
	assert.True(t, ok)
	assert.Equal(t, "Salewa-en", name.Name)
}

func TestRun_FailingDatasetDoesNotStopOthers(t *testing.T) {
	boom := errors.New("api down")
	job, store, rec := newJob(t, &fakeAPI{failOn: map[string]error{"barters": boom}}, []string{"en"})
	ctx := context.Background()

	report, err := job.Run(ctx)
	require.ErrorIs(t, err, boom)

	failed := report.Failed()
	require.Len(t, failed, 1)
	assert.Equal(t, DatasetBarters, failed[0].Dataset)

	var v any
	assert.ErrorIs(t, store.ReadDocument(ctx, storage.DocBarters, &v), storage.ErrNotFound)
	assert.NoError(t, store.ReadDocument(ctx, storage.DocCrafts, &v))
	assert.NoError(t, store.ReadDocument(ctx, storage.DocMaps, &v))

	var failedRuns int
	for _, r := range rec.runs {
		if r.err != nil {
			failedRuns++
		}
	}
	assert.Equal(t, 1, failedRuns)
}

func TestRun_LocaleFailureKeepsBaseDocument(t *testing.T) {
	api := &fakeAPI{failLang: "ru"}
	job, store, _ := newJob(t, api, []string{"en", "ru", "de"})
	ctx := context.Background()

	_, err := job.Run(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ru: locale unavailable")

	var items []core.Item
	require.NoError(t, store.ReadDocument(ctx, storage.DocItems, &items))

	var v any
	assert.ErrorIs(t, store.ReadDocument(ctx, storage.DocItemsLocale, &v), storage.ErrNotFound)
	assert.Equal(t, []string{"de", "en"}, job.ItemNames().Languages())
	assert.ElementsMatch(t, []string{"en", "ru", "de"}, api.langs)
}

type failingWriter struct{}

func (failingWriter) Init() error  { return nil }
func (failingWriter) Close() error { return nil }
func (failingWriter) WriteDocument(context.Context, string, any) error {
	return errors.New("disk full")
}

func TestRun_WriteFailure(t *testing.T) {
	job, err := New(Dependencies{API: &fakeAPI{}, Writer: failingWriter{}}, []string{"en"})
	require.NoError(t, err)

	report, err := job.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
	assert.Len(t, report.Failed(), 6)
}

func TestRun_ResetsLocaleTablesBetweenRuns(t *testing.T) {
	job, _, _ := newJob(t, &fakeAPI{}, []string{"en", "de"})
	_, err := job.Run(context.Background())
	require.NoError(t, err)

	job.languages = []string{"en"}
	_, err = job.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"en"}, job.TraderNames().Languages())
}
