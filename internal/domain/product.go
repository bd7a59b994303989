package domain

// Price тарифная позиция каталога платежной системы
type Price struct {
	ID              string `json:"id"`
	ProductID       string `json:"product"`
	UnitAmount      int64  `json:"unit_amount"`
	Currency        string `json:"currency"`
	Interval        string `json:"interval,omitempty"` // month/year для рекуррентных тарифов
	IntervalCount   int64  `json:"interval_count,omitempty"`
	TrialPeriodDays int64  `json:"trial_period_days,omitempty"`
	Type            string `json:"type"`
	Active          bool   `json:"active"`
}

// Product продукт каталога платежной системы со своими тарифами
type Product struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description,omitempty"`
	Prices      []Price `json:"prices"`
}

// TrialDaysForPrice возвращает длительность триала для тарифа.
// Если тариф не найден или триал не задан, берется значение по умолчанию.
func TrialDaysForPrice(products []Product, priceID string, defaultDays int64) int64 {
	for _, product := range products {
		for _, price := range product.Prices {
			if price.ID == priceID && price.TrialPeriodDays > 0 {
				return price.TrialPeriodDays
			}
		}
	}
	return defaultDays
}
