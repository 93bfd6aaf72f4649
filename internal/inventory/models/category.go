package models

import dErrors "dlvery/pkg/domain-errors"

// Category groups products and fixes the SKU prefix.
type Category string

const (
	CategoryElectronics     Category = "ELECTRONICS"
	CategoryClothing        Category = "CLOTHING"
	CategoryFoodBeverages   Category = "FOOD_BEVERAGES"
	CategoryHomeGarden      Category = "HOME_GARDEN"
	CategoryBooks           Category = "BOOKS"
	CategoryToysGames       Category = "TOYS_GAMES"
	CategoryHealthBeauty    Category = "HEALTH_BEAUTY"
	CategorySportsOutdoors  Category = "SPORTS_OUTDOORS"
	CategoryAutomotive      Category = "AUTOMOTIVE"
	CategoryOfficeSupplies  Category = "OFFICE_SUPPLIES"
	CategoryPharmaceuticals Category = "PHARMACEUTICALS"
	CategoryFrozenGoods     Category = "FROZEN_GOODS"
	CategoryFreshProduce    Category = "FRESH_PRODUCE"
	CategoryOther           Category = "OTHER"
)

var skuPrefixes = map[Category]string{
	CategoryElectronics:     "ELEC",
	CategoryClothing:        "CLTH",
	CategoryFoodBeverages:   "FOOD",
	CategoryHomeGarden:      "HOME",
	CategoryBooks:           "BOOK",
	CategoryToysGames:       "TOYS",
	CategoryHealthBeauty:    "HLTH",
	CategorySportsOutdoors:  "SPRT",
	CategoryAutomotive:      "AUTO",
	CategoryOfficeSupplies:  "OFFC",
	CategoryPharmaceuticals: "PHRM",
	CategoryFrozenGoods:     "FRZN",
	CategoryFreshProduce:    "FRSH",
	CategoryOther:           "OTHR",
}

// ParseCategory validates s against the closed set.
func ParseCategory(s string) (Category, error) {
	c := Category(s)
	if _, ok := skuPrefixes[c]; !ok {
		return "", dErrors.New(dErrors.CodeInvalidInput, "invalid product category: "+s)
	}
	return c, nil
}

// Prefix is the four-letter SKU prefix for c.
func (c Category) Prefix() string {
	return skuPrefixes[c]
}
