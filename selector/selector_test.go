package selector

import (
	"errors"
	"testing"

	"ecoleta-cli/model"
	"ecoleta-cli/nav"
)

type recordingNavigator struct {
	route  string
	params nav.Params
	calls  int
	err    error
}

func (r *recordingNavigator) Navigate(route string, params nav.Params) error {
	r.calls++
	r.route = route
	r.params = params
	return r.err
}

func TestNew_StartsWithPlaceholders(t *testing.T) {
	s := New()
	if !model.IsPlaceholder(s.UFOptions()) {
		t.Fatalf("expected placeholder uf list, got %+v", s.UFOptions())
	}
	if !model.IsPlaceholder(s.CityOptions()) {
		t.Fatalf("expected placeholder city list, got %+v", s.CityOptions())
	}
	if s.UF() != "" || s.City() != "" {
		t.Fatalf("expected empty selection, got %+v", s.Selection())
	}
}

func TestApplyUFs_OneOptionPerEntry(t *testing.T) {
	s := New()
	req := s.Mount()
	if !s.Loading(KindUFs) {
		t.Fatal("expected uf request to be in flight")
	}

	ufs := []model.UF{{Id: 11, Sigla: "RO"}, {Id: 35, Sigla: "SP"}, {Id: 33, Sigla: "RJ"}}
	if !s.ApplyUFs(req, ufs) {
		t.Fatal("expected uf response to be applied")
	}
	options := s.UFOptions()
	if len(options) != len(ufs) {
		t.Fatalf("expected %d options, got %d", len(ufs), len(options))
	}
	for i, uf := range ufs {
		if options[i].Value != uf.Sigla || options[i].Label != uf.Sigla || options[i].Key != uf.Id {
			t.Fatalf("option %d not mapped from %+v: %+v", i, uf, options[i])
		}
	}
	if s.Loading(KindUFs) {
		t.Fatal("expected uf request to be settled")
	}
}

func TestFail_LeavesUFPlaceholder(t *testing.T) {
	s := New()
	req := s.Mount()
	if !s.Fail(req) {
		t.Fatal("expected current request to fail")
	}
	if !model.IsPlaceholder(s.UFOptions()) {
		t.Fatalf("expected placeholder after failure, got %+v", s.UFOptions())
	}
	if _, ok := s.ReloadUFs(); !ok {
		t.Fatal("expected reload to be allowed after failure")
	}
}

func TestSetUF_EmptyIssuesNoRequest(t *testing.T) {
	s := New()
	if _, ok := s.SetUF(""); ok {
		t.Fatal("expected no city request for empty uf")
	}
	if s.Loading(KindCities) {
		t.Fatal("expected no city request in flight")
	}
}

func TestSetUF_CitiesForSP(t *testing.T) {
	s := New()
	req, ok := s.SetUF("SP")
	if !ok {
		t.Fatal("expected city request")
	}
	if req.Kind != KindCities || req.UF != "SP" || req.ID == "" {
		t.Fatalf("unexpected request: %+v", req)
	}

	if !s.ApplyCities(req, []model.Municipio{{Id: 1, Nome: "São Paulo"}}) {
		t.Fatal("expected city response to be applied")
	}
	got := s.CityOptions()
	want := model.Option{Label: "São Paulo", Value: "São Paulo", Key: 1}
	if len(got) != 1 || got[0] != want {
		t.Fatalf("expected [%+v], got %+v", want, got)
	}
}

func TestSetUF_SameValueIsNoop(t *testing.T) {
	s := New()
	req, _ := s.SetUF("SP")
	s.ApplyCities(req, []model.Municipio{{Id: 1, Nome: "São Paulo"}})
	s.SetCity("São Paulo")

	if _, ok := s.SetUF("SP"); ok {
		t.Fatal("expected no request when uf is unchanged")
	}
	if s.City() != "São Paulo" {
		t.Fatalf("expected city to be kept, got %q", s.City())
	}
}

func TestSetUF_ChangeClearsCity(t *testing.T) {
	s := New()
	req, _ := s.SetUF("SP")
	s.ApplyCities(req, []model.Municipio{{Id: 1, Nome: "São Paulo"}})
	s.SetCity("São Paulo")

	if _, ok := s.SetUF("RJ"); !ok {
		t.Fatal("expected city request for new uf")
	}
	if s.City() != "" {
		t.Fatalf("expected city to be cleared, got %q", s.City())
	}
	if !model.IsPlaceholder(s.CityOptions()) {
		t.Fatalf("expected city list reset while loading, got %+v", s.CityOptions())
	}
}

func TestSetUF_EmptyKeepsCityList(t *testing.T) {
	s := New()
	req, _ := s.SetUF("SP")
	s.ApplyCities(req, []model.Municipio{{Id: 1, Nome: "São Paulo"}, {Id: 2, Nome: "Campinas"}})

	if _, ok := s.SetUF(""); ok {
		t.Fatal("expected no request for empty uf")
	}
	if len(s.CityOptions()) != 2 {
		t.Fatalf("expected previous city list to be kept, got %+v", s.CityOptions())
	}
}

func TestApplyCities_DiscardsStaleResponse(t *testing.T) {
	s := New()
	spReq, _ := s.SetUF("SP")
	rjReq, _ := s.SetUF("RJ")

	if !s.ApplyCities(rjReq, []model.Municipio{{Id: 3304557, Nome: "Rio de Janeiro"}}) {
		t.Fatal("expected current response to be applied")
	}
	if s.ApplyCities(spReq, []model.Municipio{{Id: 3550308, Nome: "São Paulo"}}) {
		t.Fatal("expected stale response to be discarded")
	}
	got := s.CityOptions()
	if len(got) != 1 || got[0].Value != "Rio de Janeiro" {
		t.Fatalf("expected rio de janeiro list, got %+v", got)
	}
}

func TestApplyCities_DiscardsAfterUFCleared(t *testing.T) {
	s := New()
	req, _ := s.SetUF("SP")
	s.SetUF("")

	if s.ApplyCities(req, []model.Municipio{{Id: 1, Nome: "São Paulo"}}) {
		t.Fatal("expected response for cleared uf to be discarded")
	}
	if s.Fail(req) {
		t.Fatal("expected failure for cleared uf to be ignored")
	}
}

func TestApplyUFs_DiscardsSupersededRequest(t *testing.T) {
	s := New()
	first := s.Mount()
	second := s.Mount()

	if s.ApplyUFs(first, []model.UF{{Id: 35, Sigla: "SP"}}) {
		t.Fatal("expected superseded response to be discarded")
	}
	if !s.ApplyUFs(second, []model.UF{{Id: 33, Sigla: "RJ"}}) {
		t.Fatal("expected current response to be applied")
	}
	if got := s.UFOptions(); len(got) != 1 || got[0].Value != "RJ" {
		t.Fatalf("unexpected uf list: %+v", got)
	}
}

func TestReloadCities(t *testing.T) {
	s := New()
	if _, ok := s.ReloadCities(); ok {
		t.Fatal("expected no reload without uf")
	}
	req, _ := s.SetUF("SP")
	if _, ok := s.ReloadCities(); ok {
		t.Fatal("expected no reload while a request is in flight")
	}
	s.Fail(req)
	next, ok := s.ReloadCities()
	if !ok {
		t.Fatal("expected reload after failure")
	}
	if next.ID == req.ID || next.UF != "SP" {
		t.Fatalf("unexpected reload request: %+v", next)
	}
}

func TestSubmit_ForwardsSelection(t *testing.T) {
	s := New()
	req, _ := s.SetUF("SP")
	s.ApplyCities(req, []model.Municipio{{Id: 1, Nome: "São Paulo"}})
	s.SetCity("São Paulo")

	navigator := &recordingNavigator{}
	if err := s.Submit(navigator, nav.RoutePoints); err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if navigator.calls != 1 || navigator.route != "Points" {
		t.Fatalf("unexpected navigation: %+v", navigator)
	}
	if navigator.params != (nav.Params{UF: "SP", City: "São Paulo"}) {
		t.Fatalf("unexpected params: %+v", navigator.params)
	}
}

func TestSubmit_DoesNotValidate(t *testing.T) {
	s := New()
	navigator := &recordingNavigator{}
	if err := s.Submit(navigator, nav.RoutePoints); err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if navigator.params != (nav.Params{}) {
		t.Fatalf("expected empty params, got %+v", navigator.params)
	}
}

func TestSubmit_PropagatesNavigatorError(t *testing.T) {
	s := New()
	navigator := &recordingNavigator{err: errors.New("no route")}
	if err := s.Submit(navigator, nav.RoutePoints); err == nil {
		t.Fatal("expected navigator error")
	}
}
