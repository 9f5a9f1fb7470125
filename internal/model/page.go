package model

// Page describes one window of a paginated list.
//
// HasMore is exact: the store fetches one row past the limit and reports
// whether it existed, instead of guessing from len(items) == limit.
type Page struct {
	Page    int  `json:"page"`
	Limit   int  `json:"limit"`
	HasMore bool `json:"has_more"`
}
