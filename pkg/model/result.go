package model

// FetchStatus classifies the outcome of a single provider fetch.
type FetchStatus int

const (
	FetchSuccess FetchStatus = iota
	FetchFailure
	FetchTimeout
)

func (s FetchStatus) String() string {
	switch s {
	case FetchSuccess:
		return "success"
	case FetchTimeout:
		return "timeout"
	default:
		return "failure"
	}
}

// FetchResult carries one batch of positions from a provider fetch,
// tagged with the provider name and the outcome.
type FetchResult struct {
	// Source is the provider name, e.g. "adsb.fi".
	Source string

	// Status is the fetch outcome. Positions is only populated on
	// FetchSuccess.
	Status FetchStatus

	// Positions are the contacts returned by the provider.
	Positions []AircraftPosition

	// Message holds the error text for failed fetches.
	Message string
}
