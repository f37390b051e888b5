package projections

import (
	"context"

	"orgconsole/internal/adapters/backend"
	"orgconsole/internal/application/listutil"
	"orgconsole/internal/domain/merch"
)

// GetMerchCustomerPageQuery carries query parameters.
type GetMerchCustomerPageQuery struct {
	listutil.PageParams
	MerchID int64
	Search  string
	Status  string
}

// GetMerchCustomerPageResult carries the query result.
type GetMerchCustomerPageResult struct {
	MerchID    int64
	Customers  []merch.Customer
	PageInfo   listutil.PageInfo
	Search     string
	SearchKind listutil.SearchKind
	Status     string
}

// GetMerchCustomerPageDeps holds dependencies for GetMerchCustomerPage.
type GetMerchCustomerPageDeps struct {
	Customers CustomerLister
}

// QueryGetMerchCustomerPage fetches one page of a merch's customers and filters it by the search text.
// PRE: MerchID > 0, Page >= 1
// POST: Customers are the page's rows matching Search; Status is passed to the backend
func QueryGetMerchCustomerPage(ctx context.Context, query GetMerchCustomerPageQuery, deps GetMerchCustomerPageDeps) (GetMerchCustomerPageResult, error) {
	page, err := deps.Customers.ListMerchCustomers(ctx, query.MerchID, backend.CustomerQuery{
		Page:   query.BackendPage(),
		Size:   query.PerPage,
		Status: query.Status,
	})
	if err != nil {
		return GetMerchCustomerPageResult{}, err
	}

	var customers []merch.Customer
	for _, c := range page.Content {
		if c.MatchesSearch(query.Search) {
			customers = append(customers, c)
		}
	}

	return GetMerchCustomerPageResult{
		MerchID:    query.MerchID,
		Customers:  customers,
		PageInfo:   listutil.NewPageInfo(page.Number+1, query.PerPage, int(page.TotalElements)),
		Search:     query.Search,
		SearchKind: listutil.ClassifySearch(query.Search),
		Status:     query.Status,
	}, nil
}
