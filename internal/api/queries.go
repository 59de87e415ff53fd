package api

const itemFields = `
	id
	name
	shortName
	normalizedName
	basePrice
	width
	height
	iconLink
	wikiLink
	types
	lastLowPrice
	avg24hPrice
	buyFor {
		vendor { name normalizedName }
		price
		currency
		priceRUB
	}
	sellFor {
		vendor { name normalizedName }
		price
		currency
		priceRUB
	}`

const itemsQuery = `query Items($lang: LanguageCode) {
	items(lang: $lang) {` + itemFields + `
	}
}`

const itemNamesQuery = `query ItemNames($lang: LanguageCode) {
	items(lang: $lang) {
		id
		name
		shortName
	}
}`

const containedItemFields = `
	item {` + itemFields + `
	}
	count`

const bartersQuery = `query Barters {
	barters {
		id
		trader { id name normalizedName }
		level
		taskUnlock { id name }
		rewardItems {` + containedItemFields + `
		}
		requiredItems {` + containedItemFields + `
		}
	}
}`

const craftsQuery = `query Crafts {
	crafts {
		id
		station { id name normalizedName }
		level
		duration
		rewardItems {` + containedItemFields + `
		}
		requiredItems {` + containedItemFields + `
		}
	}
}`

const tradersQuery = `query Traders($lang: LanguageCode) {
	traders(lang: $lang) {
		id
		name
		normalizedName
		description
		currency { id name normalizedName }
		levels {
			level
			requiredPlayerLevel
			requiredReputation
			requiredCommerce
		}
	}
}`

const mapsQuery = `query Maps($lang: LanguageCode) {
	maps(lang: $lang) {
		id
		name
		normalizedName
		description
		raidDuration
		players
		bosses {
			name
			spawnLocations { spawnKey chance }
		}
		spawns {
			zoneName
			position { x y z }
			sides
			categories
		}
		extracts {
			name
			position { x y z }
		}
	}
}`

const questsQuery = `query Quests {
	tasks {
		id
		name
		normalizedName
		trader { id name normalizedName }
		minPlayerLevel
		experience
		wikiLink
		taskRequirements { task { id name } }
		objectives {
			id
			type
			description
			optional
			maps { normalizedName }
		}
	}
}`
