package models

// List is a Trello list as returned by /boards/{id}/lists.
type List struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type Label struct {
	Name  string `json:"name"`
	Color string `json:"color"`
}

// Card is a Trello card as returned by /boards/{id}/cards. Fields pass
// through verbatim; dateLastActivity stays a string until filter time so the
// proxy never reshapes Trello's payload.
type Card struct {
	ID               string   `json:"id"`
	Name             string   `json:"name"`
	IDList           string   `json:"idList"`
	IDMembers        []string `json:"idMembers"`
	Labels           []Label  `json:"labels"`
	DateLastActivity string   `json:"dateLastActivity"`
	URL              string   `json:"url"`
}
