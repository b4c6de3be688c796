package extraction

// Defaults applied by normalization and the rule-based fallback.
const (
	// DefaultModelName is the default Gemini model used for extraction.
	DefaultModelName = "gemini-2.5-flash"

	// DefaultBudgetTitle is used when the service returns no title.
	DefaultBudgetTitle = "Voice Budget"

	// TripBudgetTitle and EventBudgetTitle are the fallback titles.
	TripBudgetTitle  = "Voice Trip Budget"
	EventBudgetTitle = "Voice Event Budget"

	// DefaultItemName labels items the user still has to name.
	DefaultItemName = "Budget Item"

	// matchedItemPlanned is the planned amount for a keyword match with no number nearby.
	matchedItemPlanned = 50

	// syntheticItemPlanned is the planned amount of the catch-all item when the
	// transcript has no number at all.
	syntheticItemPlanned = 100
)
