package model

// Option is a selectable entry in a picker. States and cities share the shape.
type Option struct {
	Label string `json:"label"`
	Value string `json:"value"`
	Key   int    `json:"key"`
}

// Placeholder is the list a picker holds before its first successful fetch.
func Placeholder() []Option {
	return []Option{{Label: "", Value: "", Key: 0}}
}

func IsPlaceholder(options []Option) bool {
	return len(options) == 1 && options[0] == Option{}
}

// UFOptions maps each state 1:1 by sigla, keeping the response order.
func UFOptions(ufs []UF) []Option {
	options := make([]Option, 0, len(ufs))
	for _, uf := range ufs {
		options = append(options, Option{Label: uf.Sigla, Value: uf.Sigla, Key: uf.Id})
	}
	return options
}

// CityOptions maps each município 1:1 by nome, keeping the response order.
func CityOptions(cities []Municipio) []Option {
	options := make([]Option, 0, len(cities))
	for _, city := range cities {
		options = append(options, Option{Label: city.Nome, Value: city.Nome, Key: city.Id})
	}
	return options
}
