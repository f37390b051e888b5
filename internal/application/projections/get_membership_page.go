package projections

import (
	"context"

	"orgconsole/internal/adapters/backend"
	"orgconsole/internal/application/listutil"
	"orgconsole/internal/domain/academicyear"
	"orgconsole/internal/domain/membership"
)

// GetMembershipPageQuery carries query parameters.
type GetMembershipPageQuery struct {
	listutil.PageParams
	Search string
}

// MembershipRow is one membership with its display year and status.
type MembershipRow struct {
	membership.Membership
	Year   string
	Status string
}

// GetMembershipPageResult carries the query result.
type GetMembershipPageResult struct {
	Rows       []MembershipRow
	PageInfo   listutil.PageInfo
	Search     string
	SearchKind listutil.SearchKind
	// Hidden counts rows on this backend page that the search filtered out.
	Hidden int
}

// GetMembershipPageDeps holds dependencies for GetMembershipPage.
type GetMembershipPageDeps struct {
	Memberships MembershipLister
	Current     academicyear.Range
}

// QueryGetMembershipPage fetches one backend page of memberships and filters it by the search text.
// PRE: Page >= 1, PerPage > 0
// POST: Rows are the page's memberships whose student name or id contains Search (case-insensitive);
//
//	PageInfo reflects the backend's totals, not the filtered count.
//
// INVARIANT: Status is ACTIVE only for memberships in the current academic year
func QueryGetMembershipPage(ctx context.Context, query GetMembershipPageQuery, deps GetMembershipPageDeps) (GetMembershipPageResult, error) {
	page, err := deps.Memberships.ListMemberships(ctx, backend.MembershipQuery{
		Page:  query.BackendPage(),
		Size:  query.PerPage,
		Query: query.Search,
	})
	if err != nil {
		return GetMembershipPageResult{}, err
	}

	rows := make([]MembershipRow, 0, len(page.Content))
	for _, m := range page.Content {
		if !m.MatchesSearch(query.Search) {
			continue
		}
		rows = append(rows, MembershipRow{
			Membership: m,
			Year:       m.Year().String(),
			Status:     m.Year().Status(deps.Current),
		})
	}

	return GetMembershipPageResult{
		Rows:       rows,
		PageInfo:   listutil.NewPageInfo(page.Number+1, query.PerPage, int(page.TotalElements)),
		Search:     query.Search,
		SearchKind: listutil.ClassifySearch(query.Search),
		Hidden:     len(page.Content) - len(rows),
	}, nil
}
