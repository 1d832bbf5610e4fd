package domain

// CallerCount is how often one number called within a report window.
type CallerCount struct {
	Number string `json:"number"`
	Count  int    `json:"count"`
}
