// Package game implements the per-room flag guessing game.
package game

import "math/rand"

// Country is one catalog entry: the answer and the flag shown for it.
type Country struct {
	Name string
	Flag string
}

// Catalog is the fixed set of flags the game draws from.
var Catalog = []Country{
	{Name: "Israel", Flag: "🇮🇱"},
	{Name: "United States", Flag: "🇺🇸"},
	{Name: "Canada", Flag: "🇨🇦"},
	{Name: "Germany", Flag: "🇩🇪"},
	{Name: "Japan", Flag: "🇯🇵"},
	{Name: "Brazil", Flag: "🇧🇷"},
	{Name: "India", Flag: "🇮🇳"},
	{Name: "France", Flag: "🇫🇷"},
	{Name: "Mexico", Flag: "🇲🇽"},
	{Name: "Italy", Flag: "🇮🇹"},
}

// Picker draws the next country.
type Picker func() Country

// RandomPick draws uniformly from Catalog. Consecutive draws are independent and may repeat.
func RandomPick() Country {
	return Catalog[rand.Intn(len(Catalog))]
}

// InCatalog reports whether c is a catalog entry.
func InCatalog(c Country) bool {
	for _, entry := range Catalog {
		if entry == c {
			return true
		}
	}
	return false
}
