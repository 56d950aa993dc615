package model

type Company struct {
	ID         string `json:"id,omitempty"`
	UserID     string `json:"-"`
	Name       string `json:"name"`
	Address    string `json:"address"`
	City       string `json:"city"`
	PostalCode string `json:"postalCode"`
	NIP        string `json:"nip"`
	REGON      string `json:"regon"`
	Industry   string `json:"industry"`
}
