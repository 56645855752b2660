package registry

import (
	"context"
	"net/url"

	"sourcing_marketplace/internal/models"
)

const (
	SourceFSSP     = "fssp"
	SourceRNP      = "rnp"
	SourceEGRUL    = "egrul"
	SourceLicenses = "licenses"
)

// fsspSource checks the enforcement-proceedings registry by legal name.
type fsspSource struct {
	apiKey  string
	fetcher *fetcher
}

func (s *fsspSource) Name() string { return SourceFSSP }

func (s *fsspSource) Fetch(ctx context.Context, supplier *models.Supplier) models.SourceResult {
	params := url.Values{}
	params.Set("token", s.apiKey)
	params.Set("region", "77")
	params.Set("name", supplier.Name)
	return s.fetcher.fetch(ctx, SourceFSSP, s.apiKey, supplier,
		"https://api-fssp.gov.ru/api/v1.0/search/juridical", params)
}

// rnpSource checks the unreliable-suppliers procurement blacklist.
type rnpSource struct {
	apiKey  string
	fetcher *fetcher
}

func (s *rnpSource) Name() string { return SourceRNP }

func (s *rnpSource) Fetch(ctx context.Context, supplier *models.Supplier) models.SourceResult {
	params := url.Values{}
	params.Set("inn", TaxID(supplier))
	params.Set("country", supplier.Country)
	params.Set("apiKey", s.apiKey)
	return s.fetcher.fetch(ctx, SourceRNP, s.apiKey, supplier,
		"https://zakupki.gov.ru/epz/eruz/eruzRest/eruzSupplier/load", params)
}

// egrulSource checks the corporate register by tax id.
type egrulSource struct {
	apiKey  string
	fetcher *fetcher
}

func (s *egrulSource) Name() string { return SourceEGRUL }

func (s *egrulSource) Fetch(ctx context.Context, supplier *models.Supplier) models.SourceResult {
	params := url.Values{}
	params.Set("key", s.apiKey)
	params.Set("req", TaxID(supplier))
	return s.fetcher.fetch(ctx, SourceEGRUL, s.apiKey, supplier,
		"https://api-fns.ru/api/egr", params)
}

// licensesSource checks licensing registries; the endpoint varies by country
// with a neutral fallback for countries without a wired registry.
type licensesSource struct {
	apiKey  string
	fetcher *fetcher
}

var licenseEndpoints = map[string]string{
	"China":  "https://api.qcc.com/api/company/getDetail",
	"Turkey": "https://api.mersis.gov.tr/v1/companies",
	"India":  "https://api.mca.gov.in/company",
	"Russia": "https://api-minpromtorg.gov.ru/licences",
}

func (s *licensesSource) Name() string { return SourceLicenses }

func (s *licensesSource) Fetch(ctx context.Context, supplier *models.Supplier) models.SourceResult {
	endpoint, ok := licenseEndpoints[supplier.Country]
	if !ok {
		endpoint = "https://api.oecd-ilibrary.org/mock"
	}
	params := url.Values{}
	params.Set("name", supplier.Name)
	params.Set("country", supplier.Country)
	return s.fetcher.fetch(ctx, SourceLicenses, s.apiKey, supplier, endpoint, params)
}
