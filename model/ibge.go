package model

// UF is a federative unit as returned by the IBGE localidades API.
type UF struct {
	Id    int    `json:"id"`
	Sigla string `json:"sigla"`
	Nome  string `json:"nome"`
}

type Municipio struct {
	Id   int    `json:"id"`
	Nome string `json:"nome"`
}
