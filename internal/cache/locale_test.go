package cache

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tarkov-dev/site/pkg/core"
)

func TestLocaleTable_NewLocaleTable(t *testing.T) {
	table := NewLocaleTable()

	require.NotNil(t, table)
	assert.NotNil(t, table.langs)
	assert.Empty(t, table.Languages())
}

func TestLocaleTable_SetAndGet(t *testing.T) {
	table := NewLocaleTable()

	table.Set("de", "item1", core.LocalizedName{Name: "Verband", ShortName: "Verb."})

	name, ok := table.Get("de", "item1")
	require.True(t, ok, "expected to find item1")
	assert.Equal(t, "Verband", name.Name)
	assert.Equal(t, "Verb.", name.ShortName)
}

func TestLocaleTable_Get_NotFound(t *testing.T) {
	table := NewLocaleTable()
	table.Set("de", "item1", core.LocalizedName{Name: "x"})

	_, ok := table.Get("fr", "item1")
	assert.False(t, ok, "unknown language")
	_, ok = table.Get("de", "item2")
	assert.False(t, ok, "unknown id")
}

func TestLocaleTable_SetLanguage_Copies(t *testing.T) {
	table := NewLocaleTable()
	names := map[string]core.LocalizedName{"t1": {Name: "Прапор"}}

	table.SetLanguage("ru", names)
	names["t1"] = core.LocalizedName{Name: "mutated"}

	got, ok := table.Get("ru", "t1")
	require.True(t, ok)
	assert.Equal(t, "Прапор", got.Name)
}

func TestLocaleTable_SnapshotIsDeepCopy(t *testing.T) {
	table := NewLocaleTable()
	table.Set("es", "a", core.LocalizedName{Name: "uno"})

	snap := table.Snapshot()
	snap["es"]["a"] = core.LocalizedName{Name: "changed"}
	delete(snap, "es")

	got, ok := table.Get("es", "a")
	require.True(t, ok)
	assert.Equal(t, "uno", got.Name)
}

func TestLocaleTable_Languages_Sorted(t *testing.T) {
	table := NewLocaleTable()
	for _, lang := range []string{"zh", "de", "pl"} {
		table.Set(lang, "id", core.LocalizedName{Name: lang})
	}
	assert.Equal(t, []string{"de", "pl", "zh"}, table.Languages())
}

func TestLocaleTable_Reset(t *testing.T) {
	table := NewLocaleTable()
	table.Set("it", "id", core.LocalizedName{Name: "nome"})
	table.Reset()

	assert.Empty(t, table.Languages())
}

func TestLocaleTable_ConcurrentAccess(t *testing.T) {
	table := NewLocaleTable()
	langs := []string{"es", "de", "fr", "cz", "hu", "it", "jp", "pl"}

	var wg sync.WaitGroup
	for _, lang := range langs {
		wg.Add(1)
		go func(lang string) {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				id := fmt.Sprintf("item%d", i)
				table.Set(lang, id, core.LocalizedName{Name: lang + id})
				table.Get(lang, id)
			}
		}(lang)
	}
	wg.Wait()

	assert.Len(t, table.Languages(), len(langs))
	name, ok := table.Get("pl", "item99")
	require.True(t, ok)
	assert.Equal(t, "plitem99", name.Name)
}
