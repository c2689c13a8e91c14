// Package selector keeps the state and city pickers consistent with each other
// and with the fetches that fill them.
//
// Every fetch is described by a Request tagged with a fresh id and, for city
// lists, the UF it was issued for. Responses are applied only while their
// request is still the outstanding one, so a slow city list for a previous UF
// can never overwrite the list of the current UF.
package selector

import (
	"ecoleta-cli/model"
	"ecoleta-cli/nav"

	"github.com/google/uuid"
)

type Kind int

const (
	KindUFs Kind = iota
	KindCities
)

func (k Kind) String() string {
	switch k {
	case KindUFs:
		return "ufs"
	case KindCities:
		return "cities"
	default:
		return "unknown"
	}
}

// Request identifies one outbound fetch.
type Request struct {
	ID   string
	Kind Kind
	UF   string
}

type State struct {
	ufs    []model.Option
	cities []model.Option

	uf   string
	city string

	pendingUFs    Request
	pendingCities Request
}

func New() State {
	return State{
		ufs:    model.Placeholder(),
		cities: model.Placeholder(),
	}
}

// Mount issues the state list request.
func (s *State) Mount() Request {
	s.pendingUFs = Request{ID: uuid.NewString(), Kind: KindUFs}
	return s.pendingUFs
}

// ReloadUFs re-issues the state list request unless one is already in flight.
func (s *State) ReloadUFs() (Request, bool) {
	if s.pendingUFs.ID != "" {
		return Request{}, false
	}
	return s.Mount(), true
}

// ApplyUFs replaces the state list when req is the outstanding state request.
func (s *State) ApplyUFs(req Request, ufs []model.UF) bool {
	if req.Kind != KindUFs || req.ID == "" || req.ID != s.pendingUFs.ID {
		return false
	}
	s.ufs = model.UFOptions(ufs)
	s.pendingUFs = Request{}
	return true
}

// SetUF changes the selected state. A change always clears the city choice.
// A non-empty UF returns the city request to issue; an empty UF issues nothing
// and leaves the current city list in place.
func (s *State) SetUF(uf string) (Request, bool) {
	if uf == s.uf {
		return Request{}, false
	}
	s.uf = uf
	s.city = ""
	if uf == "" {
		s.pendingCities = Request{}
		return Request{}, false
	}
	return s.requestCities(), true
}

// ReloadCities re-issues the city request for the current UF.
func (s *State) ReloadCities() (Request, bool) {
	if s.uf == "" || s.pendingCities.ID != "" {
		return Request{}, false
	}
	return s.requestCities(), true
}

func (s *State) requestCities() Request {
	s.cities = model.Placeholder()
	s.pendingCities = Request{ID: uuid.NewString(), Kind: KindCities, UF: s.uf}
	return s.pendingCities
}

// ApplyCities replaces the city list when req is the outstanding city request
// and was issued for the currently selected UF.
func (s *State) ApplyCities(req Request, cities []model.Municipio) bool {
	if req.Kind != KindCities || req.ID == "" || req.ID != s.pendingCities.ID {
		return false
	}
	if req.UF != s.uf {
		return false
	}
	s.cities = model.CityOptions(cities)
	s.pendingCities = Request{}
	return true
}

// Fail settles a failed request. Lists keep whatever they held before, so a
// failed first fetch leaves the placeholder. It reports whether req was
// current.
func (s *State) Fail(req Request) bool {
	switch req.Kind {
	case KindUFs:
		if req.ID == "" || req.ID != s.pendingUFs.ID {
			return false
		}
		s.pendingUFs = Request{}
		return true
	case KindCities:
		if req.ID == "" || req.ID != s.pendingCities.ID {
			return false
		}
		s.pendingCities = Request{}
		return true
	default:
		return false
	}
}

func (s *State) SetCity(city string) {
	s.city = city
}

func (s State) UF() string   { return s.uf }
func (s State) City() string { return s.city }

func (s State) UFOptions() []model.Option {
	return append([]model.Option(nil), s.ufs...)
}

func (s State) CityOptions() []model.Option {
	return append([]model.Option(nil), s.cities...)
}

// Loading reports whether a request of the given kind is in flight.
func (s State) Loading(kind Kind) bool {
	switch kind {
	case KindUFs:
		return s.pendingUFs.ID != ""
	case KindCities:
		return s.pendingCities.ID != ""
	default:
		return false
	}
}

func (s State) Selection() nav.Params {
	return nav.Params{UF: s.uf, City: s.city}
}

// Submit forwards the current selection as is; empty values are not rejected.
func (s State) Submit(n nav.Navigator, route string) error {
	return n.Navigate(route, s.Selection())
}
