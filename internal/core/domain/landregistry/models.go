package landregistry

// Address is a postal address as returned by the registry.
type Address struct {
	Line1    string `json:"line1"`
	Line2    string `json:"line2,omitempty"`
	Town     string `json:"town,omitempty"`
	County   string `json:"county,omitempty"`
	Postcode string `json:"postcode"`
}

// Property is a registered title.
type Property struct {
	TitleNumber   string  `json:"titleNumber"`
	Address       Address `json:"address"`
	Tenure        string  `json:"tenure,omitempty"`
	PropertyType  string  `json:"propertyType,omitempty"`
	LastSoldPrice *int64  `json:"lastSoldPrice,omitempty"`
	LastSoldDate  string  `json:"lastSoldDate,omitempty"`
}

type PropertySearchResult struct {
	Properties []Property `json:"properties"`
	Total      int        `json:"total"`
	Page       int        `json:"page,omitempty"`
	Limit      int        `json:"limit,omitempty"`
}

// OwnershipRecord is one proprietor entry on a title.
type OwnershipRecord struct {
	TitleNumber           string  `json:"titleNumber"`
	ProprietorName        string  `json:"proprietorName"`
	ProprietorCategory    string  `json:"proprietorCategory,omitempty"`
	CompanyRegistrationNo string  `json:"companyRegistrationNo,omitempty"`
	Tenure                string  `json:"tenure,omitempty"`
	Address               Address `json:"address"`
	DateProprietorAdded   string  `json:"dateProprietorAdded,omitempty"`
}

type OwnershipLookupResult struct {
	Records []OwnershipRecord `json:"records"`
	Total   int               `json:"total"`
}

// PricePaidTransaction is a single sale from the price-paid dataset.
type PricePaidTransaction struct {
	TransactionID  string  `json:"transactionId"`
	Price          int64   `json:"price"`
	DateOfTransfer string  `json:"dateOfTransfer"`
	PropertyType   string  `json:"propertyType,omitempty"`
	NewBuild       bool    `json:"newBuild"`
	Tenure         string  `json:"tenure,omitempty"`
	Address        Address `json:"address"`
}

type PricePaidSearchResult struct {
	Transactions []PricePaidTransaction `json:"transactions"`
	Total        int                    `json:"total"`
	Page         int                    `json:"page,omitempty"`
	Limit        int                    `json:"limit,omitempty"`
}

// PriceHistory is the full sale history of one title.
type PriceHistory struct {
	TitleNumber  string                 `json:"titleNumber"`
	Transactions []PricePaidTransaction `json:"transactions"`
}

// BulkSearchResults is the payload of a completed bulk job.
type BulkSearchResults struct {
	Properties     []Property             `json:"properties"`
	Ownership      []OwnershipRecord      `json:"ownership,omitempty"`
	Transactions   []PricePaidTransaction `json:"transactions,omitempty"`
	TotalProcessed int                    `json:"totalProcessed"`
	TotalMatched   int                    `json:"totalMatched"`
}

// HealthStatus is the upstream API's own health report.
type HealthStatus struct {
	Status    string            `json:"status"`
	Version   string            `json:"version,omitempty"`
	Timestamp string            `json:"timestamp,omitempty"`
	Services  map[string]string `json:"services,omitempty"`
}

// CacheClearResult reports a clearApiCache call: what the server cleared and
// how many local entries were dropped alongside it.
type CacheClearResult struct {
	Cleared             bool `json:"cleared"`
	ServerEntries       int  `json:"serverEntries,omitempty"`
	LocalEntriesCleared int  `json:"localEntriesCleared"`
}
