package datacache

import "github.com/tarkov-dev/site/pkg/core"

// PrepareItem strips the volatile market data from an item before it is cached: the
// flea-market offers and the last/average prices.
func PrepareItem(item core.Item) core.Item {
	item.LastLowPrice = 0
	item.Avg24hPrice = 0
	item.BuyFor = withoutFleaMarket(item.BuyFor)
	item.SellFor = withoutFleaMarket(item.SellFor)
	item.Cached = true
	return item
}

// PrepareItems applies PrepareItem to every item.
func PrepareItems(items []core.Item) []core.Item {
	out := make([]core.Item, len(items))
	for i, it := range items {
		out[i] = PrepareItem(it)
	}
	return out
}

// PrepareContained applies PrepareItem to the items of a barter or craft.
func PrepareContained(contained []core.ContainedItem) []core.ContainedItem {
	out := make([]core.ContainedItem, len(contained))
	for i, ci := range contained {
		ci.Item = PrepareItem(ci.Item)
		out[i] = ci
	}
	return out
}

func withoutFleaMarket(prices []core.ItemPrice) []core.ItemPrice {
	if prices == nil {
		return nil
	}
	out := make([]core.ItemPrice, 0, len(prices))
	for _, p := range prices {
		if p.Vendor.NormalizedName == core.FleaMarketVendor {
			continue
		}
		out = append(out, p)
	}
	return out
}
