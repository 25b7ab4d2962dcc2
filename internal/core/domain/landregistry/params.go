package landregistry

import (
	"net/url"
	"strconv"
	"strings"
)

// Operation names. They prefix every cache key, so they must stay stable.
const (
	OpSearchProperties         = "searchProperties"
	OpGetPropertyByTitleNumber = "getPropertyByTitleNumber"
	OpLookupOwnership          = "lookupOwnership"
	OpSearchPricePaid          = "searchPricePaid"
	OpGetPriceHistory          = "getPriceHistory"
	OpStartBulkSearch          = "startBulkSearch"
	OpGetBulkSearchStatus      = "getBulkSearchStatus"
	OpDownloadBulkResults      = "downloadBulkResults"
	OpClearAPICache            = "clearApiCache"
	OpGetHealthStatus          = "getHealthStatus"
)

// Query parameter names shared by the upstream API and the cache keys.
const (
	ParamTitleNumber    = "title_number"
	ParamPostcode       = "postcode"
	ParamStreet         = "street"
	ParamTown           = "town"
	ParamPropertyType   = "property_type"
	ParamCompanyName    = "company_name"
	ParamProprietorName = "proprietor_name"
	ParamMinPrice       = "min_price"
	ParamMaxPrice       = "max_price"
	ParamFromDate       = "from_date"
	ParamToDate         = "to_date"
	ParamPage           = "page"
	ParamLimit          = "limit"
)

// NormalizePostcode upper-cases a postcode and strips all whitespace so
// "sw1a 1aa" and "SW1A1AA" address the same cache entry.
func NormalizePostcode(p string) string {
	return strings.ToUpper(strings.Join(strings.Fields(p), ""))
}

// NormalizeTitleNumber trims and upper-cases a title number.
func NormalizeTitleNumber(t string) string {
	return strings.ToUpper(strings.TrimSpace(t))
}

// TitleNumberParams is the key parameter set for operations addressed by a
// single title number in the path.
func TitleNumberParams(titleNumber string) url.Values {
	q := url.Values{}
	setString(q, ParamTitleNumber, NormalizeTitleNumber(titleNumber))
	return q
}

// PropertySearchParams filters /properties/search.
type PropertySearchParams struct {
	Postcode     string `json:"postcode,omitempty" query:"postcode" validate:"omitempty,max=10"`
	Street       string `json:"street,omitempty" query:"street" validate:"omitempty,max=120"`
	Town         string `json:"town,omitempty" query:"town" validate:"omitempty,max=80"`
	PropertyType string `json:"propertyType,omitempty" query:"property_type" validate:"omitempty,oneof=detached semi-detached terraced flat other"`
	Page         int    `json:"page,omitempty" query:"page" validate:"omitempty,min=1"`
	Limit        int    `json:"limit,omitempty" query:"limit" validate:"omitempty,min=1,max=100"`
}

// Normalize returns a copy with canonical postcode and trimmed free text.
func (p PropertySearchParams) Normalize() PropertySearchParams {
	p.Postcode = NormalizePostcode(p.Postcode)
	p.Street = strings.TrimSpace(p.Street)
	p.Town = strings.TrimSpace(p.Town)
	return p
}

// HasCriteria reports whether at least one location filter is set.
func (p PropertySearchParams) HasCriteria() bool {
	return hasAny(p.Postcode, p.Street, p.Town)
}

// Query builds the canonical query for the search. Empty fields are omitted.
func (p PropertySearchParams) Query() url.Values {
	q := url.Values{}
	setString(q, ParamPostcode, NormalizePostcode(p.Postcode))
	setString(q, ParamStreet, strings.TrimSpace(p.Street))
	setString(q, ParamTown, strings.TrimSpace(p.Town))
	setString(q, ParamPropertyType, p.PropertyType)
	setInt(q, ParamPage, p.Page)
	setInt(q, ParamLimit, p.Limit)
	return q
}

// OwnershipLookupParams filters /ownership/lookup. At least one field is required.
type OwnershipLookupParams struct {
	TitleNumber    string `json:"titleNumber,omitempty" query:"title_number" validate:"omitempty,alphanum,max=12"`
	Postcode       string `json:"postcode,omitempty" query:"postcode" validate:"omitempty,max=10"`
	CompanyName    string `json:"companyName,omitempty" query:"company_name" validate:"omitempty,max=160"`
	ProprietorName string `json:"proprietorName,omitempty" query:"proprietor_name" validate:"omitempty,max=160"`
}

func (p OwnershipLookupParams) Normalize() OwnershipLookupParams {
	p.TitleNumber = NormalizeTitleNumber(p.TitleNumber)
	p.Postcode = NormalizePostcode(p.Postcode)
	p.CompanyName = strings.TrimSpace(p.CompanyName)
	p.ProprietorName = strings.TrimSpace(p.ProprietorName)
	return p
}

func (p OwnershipLookupParams) HasCriteria() bool {
	return hasAny(p.TitleNumber, p.Postcode, p.CompanyName, p.ProprietorName)
}

func (p OwnershipLookupParams) Query() url.Values {
	q := url.Values{}
	setString(q, ParamTitleNumber, NormalizeTitleNumber(p.TitleNumber))
	setString(q, ParamPostcode, NormalizePostcode(p.Postcode))
	setString(q, ParamCompanyName, strings.TrimSpace(p.CompanyName))
	setString(q, ParamProprietorName, strings.TrimSpace(p.ProprietorName))
	return q
}

// PricePaidSearchParams filters /price-paid/search. Dates are YYYY-MM-DD.
type PricePaidSearchParams struct {
	Postcode     string `json:"postcode,omitempty" query:"postcode" validate:"omitempty,max=10"`
	Street       string `json:"street,omitempty" query:"street" validate:"omitempty,max=120"`
	Town         string `json:"town,omitempty" query:"town" validate:"omitempty,max=80"`
	PropertyType string `json:"propertyType,omitempty" query:"property_type" validate:"omitempty,oneof=detached semi-detached terraced flat other"`
	MinPrice     int64  `json:"minPrice,omitempty" query:"min_price" validate:"omitempty,min=0"`
	MaxPrice     int64  `json:"maxPrice,omitempty" query:"max_price" validate:"omitempty,gtefield=MinPrice"`
	FromDate     string `json:"fromDate,omitempty" query:"from_date" validate:"omitempty,datetime=2006-01-02"`
	ToDate       string `json:"toDate,omitempty" query:"to_date" validate:"omitempty,datetime=2006-01-02"`
	Page         int    `json:"page,omitempty" query:"page" validate:"omitempty,min=1"`
	Limit        int    `json:"limit,omitempty" query:"limit" validate:"omitempty,min=1,max=100"`
}

func (p PricePaidSearchParams) Normalize() PricePaidSearchParams {
	p.Postcode = NormalizePostcode(p.Postcode)
	p.Street = strings.TrimSpace(p.Street)
	p.Town = strings.TrimSpace(p.Town)
	return p
}

func (p PricePaidSearchParams) HasCriteria() bool {
	return hasAny(p.Postcode, p.Street, p.Town)
}

func (p PricePaidSearchParams) Query() url.Values {
	q := url.Values{}
	setString(q, ParamPostcode, NormalizePostcode(p.Postcode))
	setString(q, ParamStreet, strings.TrimSpace(p.Street))
	setString(q, ParamTown, strings.TrimSpace(p.Town))
	setString(q, ParamPropertyType, p.PropertyType)
	setInt64(q, ParamMinPrice, p.MinPrice)
	setInt64(q, ParamMaxPrice, p.MaxPrice)
	setString(q, ParamFromDate, p.FromDate)
	setString(q, ParamToDate, p.ToDate)
	setInt(q, ParamPage, p.Page)
	setInt(q, ParamLimit, p.Limit)
	return q
}

// BulkSearchRequest submits a batch lookup. NotifyEmail stays local and is
// never forwarded upstream.
type BulkSearchRequest struct {
	Postcodes        []string `json:"postcodes,omitempty" validate:"max=1000,dive,required,max=10"`
	TitleNumbers     []string `json:"titleNumbers,omitempty" validate:"max=1000,dive,required,alphanum,max=12"`
	IncludeOwnership bool     `json:"includeOwnership,omitempty"`
	IncludePricePaid bool     `json:"includePricePaid,omitempty"`
	NotifyEmail      string   `json:"notifyEmail,omitempty" validate:"omitempty,email"`
}

// HasCriteria reports whether the batch names anything to search for.
func (r BulkSearchRequest) HasCriteria() bool {
	return len(r.Postcodes)+len(r.TitleNumbers) > 0
}

// Normalize returns a copy with canonical postcodes and title numbers.
func (r BulkSearchRequest) Normalize() BulkSearchRequest {
	out := r
	out.Postcodes = nil
	out.TitleNumbers = nil
	for _, p := range r.Postcodes {
		out.Postcodes = append(out.Postcodes, NormalizePostcode(p))
	}
	for _, t := range r.TitleNumbers {
		out.TitleNumbers = append(out.TitleNumbers, NormalizeTitleNumber(t))
	}
	out.NotifyEmail = strings.TrimSpace(r.NotifyEmail)
	return out
}

// UpstreamBody is the request body sent to /bulk-search.
func (r BulkSearchRequest) UpstreamBody() BulkSearchRequest {
	body := r.Normalize()
	body.NotifyEmail = ""
	return body
}

func hasAny(values ...string) bool {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return true
		}
	}
	return false
}

func setString(q url.Values, key, value string) {
	if value != "" {
		q.Set(key, value)
	}
}

func setInt(q url.Values, key string, value int) {
	if value != 0 {
		q.Set(key, strconv.Itoa(value))
	}
}

func setInt64(q url.Values, key string, value int64) {
	if value != 0 {
		q.Set(key, strconv.FormatInt(value, 10))
	}
}
