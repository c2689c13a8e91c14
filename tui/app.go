package tui

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"ecoleta-cli/model"
	"ecoleta-cli/nav"
	"ecoleta-cli/search"
	"ecoleta-cli/selector"
	"ecoleta-cli/service"
	"ecoleta-cli/store"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

const (
	titleText       = "Seu marketplace de coleta de resíduos"
	descriptionText = "Ajudamos pessoas a encontrarem pontos de coleta de forma eficiente"
	ufPlaceholder   = "Selecione uma UF"
	cityPlaceholder = "Selecione uma cidade"
	submitText      = "Entrar"
	brandColor      = "#34CB79"
	titleColor      = "#322153"
)

type appState int

const (
	stateHome appState = iota
	statePickUF
	statePickCity
)

type field int

const (
	fieldUF field = iota
	fieldCity
	fieldSubmit
	fieldCount
)

// Geography is the part of the IBGE client the screen depends on.
type Geography interface {
	GetUFs(ctx context.Context) ([]model.UF, error)
	GetCities(ctx context.Context, uf string) ([]model.Municipio, error)
}

// Locator resolves the user's current location.
type Locator func(ctx context.Context) (service.UserLocation, error)

// Options wires the screen to its collaborators.
type Options struct {
	Client    Geography
	Navigator nav.Navigator
	Route     string

	// Store backs the list cache (when Cache is set) and the selection
	// history (when History is set). It may be nil.
	Store   *store.Store
	Cache   bool
	History bool

	Locate  Locator
	Timeout time.Duration

	InitialUF   string
	InitialCity string
}

type appModel struct {
	client    Geography
	navigator nav.Navigator
	route     string
	store     *store.Store
	cache     bool
	history   bool
	locate    Locator
	timeout   time.Duration

	sel      selector.State
	mountReq selector.Request

	state appState
	focus field

	width  int
	height int

	ufList   list.Model
	cityList list.Model
	spinner  spinner.Model

	ufNames  map[string]string
	recents  []nav.Params
	locating bool

	initialUF   string
	initialCity string

	status    string
	statusErr error
}

type ufsMsg struct {
	req    selector.Request
	ufs    []model.UF
	cached bool
	err    error
}

type citiesMsg struct {
	req    selector.Request
	cities []model.Municipio
	cached bool
	err    error
}

type locationMsg struct {
	location service.UserLocation
	err      error
}

func New(opts Options) tea.Model {
	client := opts.Client
	if client == nil {
		client = service.NewClient(nil)
	}
	navigator := opts.Navigator
	if navigator == nil {
		navigator = nav.NewHandoff()
	}
	route := strings.TrimSpace(opts.Route)
	if route == "" {
		route = nav.RoutePoints
	}
	locate := opts.Locate
	if locate == nil {
		locate = service.NewGeoIP(nil).Locate
	}

	m := appModel{
		client:      client,
		navigator:   navigator,
		route:       route,
		store:       opts.Store,
		cache:       opts.Cache && opts.Store != nil,
		history:     opts.History && opts.Store != nil,
		locate:      locate,
		timeout:     opts.Timeout,
		sel:         selector.New(),
		state:       stateHome,
		focus:       fieldUF,
		ufNames:     make(map[string]string),
		initialUF:   strings.TrimSpace(opts.InitialUF),
		initialCity: strings.TrimSpace(opts.InitialCity),
	}
	m.mountReq = m.sel.Mount()

	m.ufList = newList("Selecione uma UF")
	m.cityList = newList("Selecione uma cidade")

	if m.history {
		recents, err := m.store.LoadRecentSelections()
		if err != nil {
			log.Printf("load recent selections: %v", err)
		}
		m.recents = recents
	}

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color(brandColor))
	m.spinner = sp

	return m
}

func (m appModel) Init() tea.Cmd {
	return tea.Batch(m.fetchUFsCmd(m.mountReq), m.spinner.Tick)
}

func (m appModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resizeLists()
		return m, nil

	case tea.KeyMsg:
		if m.handleFilterInput(msg) {
			return m, nil
		}
		next, cmd, handled := m.handleKey(msg)
		if handled {
			return next, cmd
		}
		m = next
		// fallthrough to component update

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		if m.isLoading() {
			return m, cmd
		}
		return m, nil

	case ufsMsg:
		if msg.err != nil {
			if m.sel.Fail(msg.req) {
				log.Printf("fetch %s request=%s failed: %v", msg.req.Kind, msg.req.ID, msg.err)
				m.statusErr = fmt.Errorf("não foi possível carregar as UFs: %w", msg.err)
			}
			return m, nil
		}
		if !m.sel.ApplyUFs(msg.req, msg.ufs) {
			log.Printf("discard stale %s response request=%s", msg.req.Kind, msg.req.ID)
			return m, nil
		}
		m.ufNames = make(map[string]string, len(msg.ufs))
		for _, uf := range msg.ufs {
			m.ufNames[uf.Sigla] = uf.Nome
		}
		m.ufList.SetItems(m.buildUFItems())
		m.statusErr = nil
		if m.initialUF != "" {
			term := m.initialUF
			m.initialUF = ""
			uf, ok := m.lookupUF(term)
			if !ok {
				m.status = fmt.Sprintf("UF %q não encontrada", term)
				m.initialCity = ""
				return m, nil
			}
			m.focus = fieldCity
			return m, m.selectUF(uf)
		}
		return m, nil

	case citiesMsg:
		if msg.err != nil {
			if m.sel.Fail(msg.req) {
				log.Printf("fetch %s uf=%s request=%s failed: %v", msg.req.Kind, msg.req.UF, msg.req.ID, msg.err)
				m.statusErr = fmt.Errorf("não foi possível carregar as cidades de %s: %w", msg.req.UF, msg.err)
			}
			return m, nil
		}
		if !m.sel.ApplyCities(msg.req, msg.cities) {
			log.Printf("discard stale %s response uf=%s request=%s current=%s", msg.req.Kind, msg.req.UF, msg.req.ID, m.sel.UF())
			return m, nil
		}
		m.cityList.SetItems(m.buildCityItems())
		m.statusErr = nil
		if m.initialCity != "" {
			term := m.initialCity
			m.initialCity = ""
			option, ok := search.Lookup(term, m.sel.CityOptions())
			if !ok {
				m.status = fmt.Sprintf("cidade %q não encontrada em %s", term, m.sel.UF())
				return m, nil
			}
			m.sel.SetCity(option.Value)
			m.focus = fieldSubmit
		}
		return m, nil

	case locationMsg:
		m.locating = false
		if msg.err != nil {
			log.Printf("detect location: %v", msg.err)
			m.statusErr = fmt.Errorf("não foi possível detectar sua localização: %w", msg.err)
			return m, nil
		}
		uf, ok := matchLocationUF(msg.location, m.sel.UFOptions(), m.ufNames)
		if !ok {
			m.status = fmt.Sprintf("localização fora das UFs disponíveis (%s)", locationLabel(msg.location))
			return m, nil
		}
		m.status = fmt.Sprintf("Localização: %s", locationLabel(msg.location))
		m.statusErr = nil
		m.focus = fieldCity
		return m, m.selectUF(uf)
	}

	var cmd tea.Cmd
	switch m.state {
	case statePickUF:
		m.ufList, cmd = m.ufList.Update(msg)
	case statePickCity:
		m.cityList, cmd = m.cityList.Update(msg)
	}
	return m, cmd
}

func (m appModel) View() string {
	header := m.headerView()
	switch m.state {
	case statePickUF:
		return header + "\n\n" + m.ufList.View() + "\n" + hint("enter selecionar • esc voltar • digite para filtrar")
	case statePickCity:
		return header + "\n\n" + m.cityList.View() + "\n" + hint("enter selecionar • esc voltar • digite para filtrar")
	default:
		return header + "\n\n" + m.homeView()
	}
}

func (m appModel) headerView() string {
	title := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(brandColor)).Render("Ecoleta")
	sub := []string{}
	if uf := m.sel.UF(); uf != "" {
		sub = append(sub, fmt.Sprintf("UF: %s", uf))
	}
	if city := m.sel.City(); city != "" {
		sub = append(sub, fmt.Sprintf("Cidade: %s", city))
	}
	if len(sub) == 0 {
		return title
	}
	return title + "  " + hint(strings.Join(sub, " • "))
}

func (m appModel) homeView() string {
	heading := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(titleColor)).Render(titleText)
	lines := []string{
		heading,
		hint(descriptionText),
		"",
		m.renderField(fieldUF, m.ufFieldValue(), ufPlaceholder, m.sel.Loading(selector.KindUFs)),
		m.renderField(fieldCity, m.sel.City(), cityPlaceholder, m.sel.Loading(selector.KindCities)),
		m.renderSubmit(),
	}
	if m.statusErr != nil {
		lines = append(lines, lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Render(m.statusErr.Error()))
	} else if m.status != "" {
		lines = append(lines, hint(m.status))
	}
	if m.locating {
		lines = append(lines, fmt.Sprintf("%s detectando localização", m.spinner.View()))
	}
	lines = append(lines, "", hint("tab/↑↓ mover • enter abrir • r tentar novamente • ctrl+l usar localização • q sair"))
	return strings.Join(lines, "\n")
}

func (m appModel) ufFieldValue() string {
	uf := m.sel.UF()
	if uf == "" {
		return ""
	}
	if name := m.ufNames[uf]; name != "" {
		return fmt.Sprintf("%s - %s", uf, name)
	}
	return uf
}

func (m appModel) renderField(f field, value string, placeholder string, loading bool) string {
	style := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("8")).
		Padding(0, 1).
		Width(fieldWidth(m.width))
	if m.focus == f {
		style = style.BorderForeground(lipgloss.Color(brandColor))
	}

	text := value
	if text == "" {
		text = lipgloss.NewStyle().Faint(true).Render(placeholder)
	}
	if loading {
		text = m.spinner.View() + " " + text
	}
	return style.Render(text)
}

func (m appModel) renderSubmit() string {
	style := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#FFFFFF")).
		Background(lipgloss.Color(brandColor)).
		Padding(0, 1).
		Width(fieldWidth(m.width) + 2).
		Align(lipgloss.Center)
	label := "→  " + submitText
	if m.focus == fieldSubmit {
		label = "▶ " + label
	}
	return style.Render(label)
}

func fieldWidth(width int) int {
	if width <= 0 {
		return 40
	}
	w := width - 6
	if w > 60 {
		w = 60
	}
	if w < 20 {
		w = 20
	}
	return w
}

func (m appModel) handleKey(msg tea.KeyMsg) (appModel, tea.Cmd, bool) {
	switch msg.String() {
	case "ctrl+c":
		return m, tea.Quit, true
	case "esc":
		if listPtr := m.activeList(); listPtr != nil {
			if listPtr.SettingFilter() || listPtr.IsFiltered() {
				listPtr.ResetFilter()
				return m, nil, true
			}
			m.state = stateHome
			return m, nil, true
		}
		return m, nil, true
	}

	if m.state != stateHome {
		if msg.Type == tea.KeyEnter {
			return m.pickSelected()
		}
		return m, nil, false
	}

	switch msg.String() {
	case "q":
		return m, tea.Quit, true
	case "tab", "down", "j":
		m.focus = (m.focus + 1) % fieldCount
		return m, nil, true
	case "shift+tab", "up", "k":
		m.focus = (m.focus + fieldCount - 1) % fieldCount
		return m, nil, true
	case "r":
		return m, m.retryCmd(), true
	case "ctrl+l":
		if m.locating {
			return m, nil, true
		}
		m.locating = true
		return m, tea.Batch(m.detectLocationCmd(), m.spinner.Tick), true
	case "backspace", "delete":
		switch m.focus {
		case fieldUF:
			return m, m.selectUF(""), true
		case fieldCity:
			m.sel.SetCity("")
			return m, nil, true
		}
		return m, nil, true
	case "enter":
		switch m.focus {
		case fieldUF:
			return m.openPicker(statePickUF)
		case fieldCity:
			return m.openPicker(statePickCity)
		case fieldSubmit:
			return m.submit()
		}
	}
	return m, nil, true
}

func (m appModel) openPicker(state appState) (appModel, tea.Cmd, bool) {
	switch state {
	case statePickUF:
		if len(m.ufList.Items()) == 0 {
			m.status = "Nenhuma UF carregada. Pressione r para tentar novamente."
			return m, nil, true
		}
	case statePickCity:
		if m.sel.UF() == "" {
			m.status = "Selecione uma UF primeiro."
			return m, nil, true
		}
		if len(m.cityList.Items()) == 0 {
			m.status = fmt.Sprintf("Nenhuma cidade carregada para %s.", m.sel.UF())
			return m, nil, true
		}
	}
	m.status = ""
	m.state = state
	return m, nil, true
}

func (m appModel) pickSelected() (appModel, tea.Cmd, bool) {
	switch m.state {
	case statePickUF:
		item, ok := m.ufList.SelectedItem().(optionItem)
		if !ok {
			return m, nil, true
		}
		m.ufList.ResetFilter()
		m.state = stateHome
		m.focus = fieldCity
		return m, m.selectUF(item.option.Value), true
	case statePickCity:
		item, ok := m.cityList.SelectedItem().(optionItem)
		if !ok {
			return m, nil, true
		}
		m.cityList.ResetFilter()
		m.sel.SetCity(item.option.Value)
		m.state = stateHome
		m.focus = fieldSubmit
		return m, nil, true
	}
	return m, nil, false
}

// selectUF changes the state and starts the matching city fetch, if any.
func (m *appModel) selectUF(uf string) tea.Cmd {
	req, ok := m.sel.SetUF(uf)
	m.cityList.ResetFilter()
	m.cityList.SetItems(m.buildCityItems())
	if !ok {
		return nil
	}
	return tea.Batch(m.fetchCitiesCmd(req), m.spinner.Tick)
}

func (m appModel) submit() (appModel, tea.Cmd, bool) {
	selection := m.sel.Selection()
	if err := m.sel.Submit(m.navigator, m.route); err != nil {
		log.Printf("navigate to %s: %v", m.route, err)
		m.statusErr = err
		return m, nil, true
	}
	log.Printf("navigate to %s uf=%q city=%q", m.route, selection.UF, selection.City)
	if m.history && selection.UF != "" && selection.City != "" {
		if err := m.store.RememberSelection(selection); err != nil {
			log.Printf("remember selection: %v", err)
		}
	}
	return m, tea.Quit, true
}

func (m *appModel) retryCmd() tea.Cmd {
	if model.IsPlaceholder(m.sel.UFOptions()) {
		if req, ok := m.sel.ReloadUFs(); ok {
			m.mountReq = req
			m.statusErr = nil
			return tea.Batch(m.fetchUFsCmd(req), m.spinner.Tick)
		}
		return nil
	}
	if m.sel.UF() != "" && model.IsPlaceholder(m.sel.CityOptions()) {
		if req, ok := m.sel.ReloadCities(); ok {
			m.statusErr = nil
			m.cityList.SetItems(nil)
			return tea.Batch(m.fetchCitiesCmd(req), m.spinner.Tick)
		}
	}
	return nil
}

func (m *appModel) handleFilterInput(msg tea.KeyMsg) bool {
	listPtr := m.activeList()
	if listPtr == nil {
		return false
	}
	if !listPtr.FilteringEnabled() {
		return false
	}
	switch msg.Type {
	case tea.KeyRunes:
		if len(msg.Runes) == 0 {
			return false
		}
		m.appendFilter(listPtr, string(msg.Runes))
		return true
	case tea.KeySpace:
		m.appendFilter(listPtr, " ")
		return true
	case tea.KeyBackspace, tea.KeyDelete:
		if listPtr.FilterValue() == "" {
			return false
		}
		m.popFilter(listPtr)
		return true
	default:
		return false
	}
}

func (m *appModel) appendFilter(listPtr *list.Model, value string) {
	if value == "" {
		return
	}
	listPtr.SetFilterText(listPtr.FilterValue() + value)
}

func (m *appModel) popFilter(listPtr *list.Model) {
	value := trimLastRune(listPtr.FilterValue())
	if value == "" {
		listPtr.ResetFilter()
		return
	}
	listPtr.SetFilterText(value)
}

func trimLastRune(value string) string {
	runes := []rune(value)
	if len(runes) <= 1 {
		return ""
	}
	return string(runes[:len(runes)-1])
}

func (m *appModel) activeList() *list.Model {
	switch m.state {
	case statePickUF:
		return &m.ufList
	case statePickCity:
		return &m.cityList
	default:
		return nil
	}
}

func (m appModel) isLoading() bool {
	return m.locating || m.sel.Loading(selector.KindUFs) || m.sel.Loading(selector.KindCities)
}

func (m *appModel) resizeLists() {
	if m.width == 0 || m.height == 0 {
		return
	}
	h := m.height - 6
	if h < 6 {
		h = 6
	}
	m.ufList.SetSize(m.width, h)
	m.cityList.SetSize(m.width, h)
}

func newList(title string) list.Model {
	delegate := list.NewDefaultDelegate()
	delegate.ShowDescription = true
	l := list.New([]list.Item{}, delegate, 0, 0)
	l.Title = title
	l.Filter = search.Filter
	l.SetFilteringEnabled(true)
	l.SetShowFilter(true)
	l.SetShowStatusBar(false)
	l.SetShowHelp(false)
	return l
}

func hint(text string) string {
	return lipgloss.NewStyle().Faint(true).Render(text)
}

func (m appModel) requestContext() (context.Context, context.CancelFunc) {
	if m.timeout > 0 {
		return context.WithTimeout(context.Background(), m.timeout)
	}
	return context.WithCancel(context.Background())
}

func (m appModel) fetchUFsCmd(req selector.Request) tea.Cmd {
	return func() tea.Msg {
		if m.cache {
			if cached, fresh, err := m.store.LoadUFs(); err == nil && fresh && len(cached) > 0 {
				log.Printf("fetch %s request=%s served from cache", req.Kind, req.ID)
				return ufsMsg{req: req, ufs: cached, cached: true}
			}
		}
		ctx, cancel := m.requestContext()
		defer cancel()

		log.Printf("fetch %s request=%s", req.Kind, req.ID)
		ufs, err := m.client.GetUFs(ctx)
		if err == nil && m.cache && len(ufs) > 0 {
			if saveErr := m.store.SaveUFs(ufs); saveErr != nil {
				log.Printf("cache %s: %v", req.Kind, saveErr)
			}
		}
		return ufsMsg{req: req, ufs: ufs, err: err}
	}
}

func (m appModel) fetchCitiesCmd(req selector.Request) tea.Cmd {
	return func() tea.Msg {
		if m.cache {
			if cached, fresh, err := m.store.LoadCities(req.UF); err == nil && fresh && len(cached) > 0 {
				log.Printf("fetch %s uf=%s request=%s served from cache", req.Kind, req.UF, req.ID)
				return citiesMsg{req: req, cities: cached, cached: true}
			}
		}
		ctx, cancel := m.requestContext()
		defer cancel()

		log.Printf("fetch %s uf=%s request=%s", req.Kind, req.UF, req.ID)
		cities, err := m.client.GetCities(ctx, req.UF)
		if err == nil && m.cache && len(cities) > 0 {
			if saveErr := m.store.SaveCities(req.UF, cities); saveErr != nil {
				log.Printf("cache %s uf=%s: %v", req.Kind, req.UF, saveErr)
			}
		}
		return citiesMsg{req: req, cities: cities, err: err}
	}
}

func (m appModel) detectLocationCmd() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := m.requestContext()
		defer cancel()
		location, err := m.locate(ctx)
		return locationMsg{location: location, err: err}
	}
}

type optionItem struct {
	option      model.Option
	description string
	recent      bool
}

func (o optionItem) Title() string {
	return o.option.Label
}

func (o optionItem) Description() string {
	switch {
	case o.recent && o.description != "":
		return o.description + " • Recente"
	case o.recent:
		return "Recente"
	default:
		return o.description
	}
}

func (o optionItem) FilterValue() string {
	return strings.TrimSpace(o.option.Label + " " + o.description)
}

// buildUFItems keeps the API order; placeholder entries are not listed.
func (m appModel) buildUFItems() []list.Item {
	recentUF := map[string]bool{}
	for _, recent := range m.recents {
		recentUF[strings.ToUpper(recent.UF)] = true
	}

	var items []list.Item
	for _, option := range m.sel.UFOptions() {
		if option.Value == "" {
			continue
		}
		items = append(items, optionItem{
			option:      option,
			description: m.ufNames[option.Value],
			recent:      recentUF[strings.ToUpper(option.Value)],
		})
	}
	return items
}

func (m appModel) buildCityItems() []list.Item {
	uf := m.sel.UF()
	recentCity := map[string]bool{}
	for _, recent := range m.recents {
		if strings.EqualFold(recent.UF, uf) {
			recentCity[search.Fold(recent.City)] = true
		}
	}

	var items []list.Item
	for _, option := range m.sel.CityOptions() {
		if option.Value == "" {
			continue
		}
		items = append(items, optionItem{
			option: option,
			recent: recentCity[search.Fold(option.Value)],
		})
	}
	return items
}

// lookupUF matches term against the listed siglas, then against state names.
func (m appModel) lookupUF(term string) (string, bool) {
	needle := search.Fold(term)
	var named []model.Option
	for _, option := range m.sel.UFOptions() {
		if option.Value == "" {
			continue
		}
		if search.Fold(option.Value) == needle {
			return option.Value, true
		}
		if name := m.ufNames[option.Value]; name != "" {
			named = append(named, model.Option{Label: name, Value: option.Value, Key: option.Key})
		}
	}
	option, ok := search.Lookup(term, named)
	return option.Value, ok
}

// matchLocationUF resolves a detected location to a listed UF, first by
// region code and then by region name.
func matchLocationUF(location service.UserLocation, options []model.Option, names map[string]string) (string, bool) {
	if !location.InBrazil() {
		return "", false
	}
	listed := map[string]bool{}
	for _, option := range options {
		if option.Value != "" {
			listed[option.Value] = true
		}
	}

	code := strings.ToUpper(strings.TrimSpace(location.RegionCode))
	if code != "" && listed[code] {
		return code, true
	}

	region := search.Fold(location.Region)
	if region == "" {
		return "", false
	}
	for sigla, name := range names {
		if listed[sigla] && search.Fold(name) == region {
			return sigla, true
		}
	}
	return "", false
}

func locationLabel(location service.UserLocation) string {
	parts := []string{}
	for _, part := range []string{location.City, location.Region, location.Country, location.CountryCode} {
		if strings.TrimSpace(part) != "" {
			parts = append(parts, strings.TrimSpace(part))
			if len(parts) == 2 {
				break
			}
		}
	}
	if len(parts) == 0 {
		return "desconhecida"
	}
	label := strings.Join(parts, ", ")
	if location.Source != "" {
		label += " via " + location.Source
	}
	return label
}
