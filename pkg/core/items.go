// pkg/core/items.go
package core

// FleaMarketVendor is the normalized vendor name of the player market.
const FleaMarketVendor = "flea-market"

// Vendor sells or buys items.
type Vendor struct {
	Name           string `json:"name"`
	NormalizedName string `json:"normalizedName"`
}

// ItemPrice is a single buy or sell offer.
type ItemPrice struct {
	Vendor   Vendor `json:"vendor"`
	Price    int    `json:"price"`
	Currency string `json:"currency"`
	PriceRUB int    `json:"priceRUB"`
}

// Item is an in-game item as returned by the API.
type Item struct {
	ID             string      `json:"id"`
	Name           string      `json:"name"`
	ShortName      string      `json:"shortName"`
	NormalizedName string      `json:"normalizedName"`
	BasePrice      int         `json:"basePrice"`
	Width          int         `json:"width"`
	Height         int         `json:"height"`
	IconLink       string      `json:"iconLink,omitempty"`
	WikiLink       string      `json:"wikiLink,omitempty"`
	Types          []string    `json:"types,omitempty"`
	LastLowPrice   int         `json:"lastLowPrice"`
	Avg24hPrice    int         `json:"avg24hPrice"`
	BuyFor         []ItemPrice `json:"buyFor"`
	SellFor        []ItemPrice `json:"sellFor"`
	Cached         bool        `json:"cached,omitempty"`
}

// ContainedItem is an item with a quantity, used by barters and crafts.
type ContainedItem struct {
	Item  Item    `json:"item"`
	Count float64 `json:"count"`
}

// TraderRef identifies the trader offering a barter.
type TraderRef struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	NormalizedName string `json:"normalizedName"`
}

// Barter is a trader item exchange.
type Barter struct {
	ID            string          `json:"id"`
	Trader        TraderRef       `json:"trader"`
	Level         int             `json:"level"`
	TaskUnlock    *QuestRef       `json:"taskUnlock,omitempty"`
	RewardItems   []ContainedItem `json:"rewardItems"`
	RequiredItems []ContainedItem `json:"requiredItems"`
	Cached        bool            `json:"cached,omitempty"`
}

// Station is a hideout station.
type Station struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	NormalizedName string `json:"normalizedName"`
}

// Craft is a hideout production recipe.
type Craft struct {
	ID            string          `json:"id"`
	Station       Station         `json:"station"`
	Level         int             `json:"level"`
	Duration      int             `json:"duration"`
	RewardItems   []ContainedItem `json:"rewardItems"`
	RequiredItems []ContainedItem `json:"requiredItems"`
	Cached        bool            `json:"cached,omitempty"`
}

// TraderLevel is one loyalty level of a trader.
type TraderLevel struct {
	Level               int     `json:"level"`
	RequiredPlayerLevel int     `json:"requiredPlayerLevel"`
	RequiredReputation  float64 `json:"requiredReputation"`
	RequiredCommerce    int     `json:"requiredCommerce"`
}

// Trader is an NPC vendor.
type Trader struct {
	ID             string        `json:"id"`
	Name           string        `json:"name"`
	NormalizedName string        `json:"normalizedName"`
	Description    string        `json:"description,omitempty"`
	Currency       *Item         `json:"currency,omitempty"`
	Levels         []TraderLevel `json:"levels,omitempty"`
}

// QuestRef is a reference to a quest by id.
type QuestRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// QuestObjective is a single task objective.
type QuestObjective struct {
	ID          string   `json:"id"`
	Type        string   `json:"type"`
	Description string   `json:"description"`
	Optional    bool     `json:"optional"`
	Maps        []MapRef `json:"maps,omitempty"`
}

// MapRef is a reference to a map by normalized name.
type MapRef struct {
	NormalizedName string `json:"normalizedName"`
}

// TaskRequirement is a quest that must be completed first.
type TaskRequirement struct {
	Task QuestRef `json:"task"`
}

// Quest is a trader task.
type Quest struct {
	ID               string            `json:"id"`
	Name             string            `json:"name"`
	NormalizedName   string            `json:"normalizedName"`
	Trader           TraderRef         `json:"trader"`
	MinPlayerLevel   int               `json:"minPlayerLevel"`
	Experience       int               `json:"experience"`
	WikiLink         string            `json:"wikiLink,omitempty"`
	TaskRequirements []TaskRequirement `json:"taskRequirements,omitempty"`
	Objectives       []QuestObjective  `json:"objectives,omitempty"`
}

// LocalizedName holds the translated display names of an item or trader.
type LocalizedName struct {
	Name      string `json:"name"`
	ShortName string `json:"shortName,omitempty"`
}
