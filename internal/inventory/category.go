package inventory

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/gksmfly/convenience-store-system/internal/shared"
)

// Category is the closed product vocabulary.
type Category string

const (
	CategoryBeverage        Category = "BEVERAGE"
	CategorySnack           Category = "SNACK"
	CategoryFood            Category = "FOOD"
	CategoryConvenienceMeal Category = "CONVENIENCE_MEAL"
	CategoryIceCream        Category = "ICE_CREAM"
	CategoryDairy           Category = "DAIRY"
	CategoryFrozen          Category = "FROZEN"
	CategoryHousehold       Category = "HOUSEHOLD"
	CategoryEtc             Category = "ETC"
)

type categoryInfo struct {
	display string
	aliases []string
}

var categoryTable = map[Category]categoryInfo{
	CategoryBeverage:        {display: "음료", aliases: []string{"음료", "drink", "beverage"}},
	CategorySnack:           {display: "과자/스낵", aliases: []string{"과자", "스낵", "snack"}},
	CategoryFood:            {display: "식품", aliases: []string{"식품", "food"}},
	CategoryConvenienceMeal: {display: "간편식", aliases: []string{"간편식", "도시락", "샌드위치", "김밥", "meal"}},
	CategoryIceCream:        {display: "아이스크림", aliases: []string{"아이스크림", "icecream", "ice_cream"}},
	CategoryDairy:           {display: "유제품", aliases: []string{"유제품", "치즈", "dairy", "milk", "cheese"}},
	CategoryFrozen:          {display: "냉장/냉동 가공식품", aliases: []string{"냉장", "냉동", "가공식품", "frozen", "chilled"}},
	CategoryHousehold:       {display: "생활용품", aliases: []string{"생활용품", "위생", "주방", "욕실", "household"}},
	CategoryEtc:             {display: "기타", aliases: []string{"기타", "etc", "other"}},
}

// Categories lists every category in display order.
var Categories = []Category{
	CategoryBeverage,
	CategorySnack,
	CategoryFood,
	CategoryConvenienceMeal,
	CategoryIceCream,
	CategoryDairy,
	CategoryFrozen,
	CategoryHousehold,
	CategoryEtc,
}

var categoryLookup = buildCategoryLookup()

func buildCategoryLookup() map[string]Category {
	out := make(map[string]Category)
	for cat, info := range categoryTable {
		out[strings.ToLower(string(cat))] = cat
		out[strings.ToLower(info.display)] = cat
		for _, alias := range info.aliases {
			out[strings.ToLower(alias)] = cat
		}
	}
	return out
}

// ParseCategory resolves a name, display name or alias. No partial matches.
func ParseCategory(s string) (Category, bool) {
	cat, ok := categoryLookup[strings.ToLower(strings.TrimSpace(s))]
	return cat, ok
}

// DisplayName returns the Korean label.
func (c Category) DisplayName() string {
	if info, ok := categoryTable[c]; ok {
		return info.display
	}
	return string(c)
}

// Valid reports whether c is a known category.
func (c Category) Valid() bool {
	_, ok := categoryTable[c]
	return ok
}

// UnmarshalJSON accepts any alias ParseCategory understands.
func (c *Category) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	cat, ok := ParseCategory(raw)
	if !ok {
		return fmt.Errorf("inventory: unknown category %q: %w", raw, shared.ErrInvalidArgument)
	}
	*c = cat
	return nil
}
