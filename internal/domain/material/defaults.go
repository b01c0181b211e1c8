package material

import "scrapdesk/internal/core/types"

// Default describes one entry of the starter catalog.
type Default struct {
	Name  string
	Code  string
	Price string
}

// DefaultCatalog is inserted for tenants that have no materials yet.
var DefaultCatalog = []Default{
	{Name: "PET", Code: "PET", Price: "900"},
	{Name: "CARTON", Code: "CAR", Price: "450"},
	{Name: "ARCHIVO", Code: "ARC", Price: "700"},
	{Name: "PLEGADIZA", Code: "PLE", Price: "250"},
	{Name: "PERIODICO", Code: "PER", Price: "300"},
	{Name: "VIDRIO", Code: "VID", Price: "150"},
	{Name: "ALUMINIO", Code: "ALU", Price: "4500"},
	{Name: "CHATARRA", Code: "CHA", Price: "800"},
	{Name: "COBRE", Code: "COB", Price: "28000"},
	{Name: "BRONCE", Code: "BRO", Price: "18000"},
	{Name: "PASTA", Code: "PAS", Price: "1200"},
	{Name: "PLASTICO SOPLADO", Code: "SOP", Price: "1000"},
}

func (d Default) material() *Material {
	code := d.Code
	return NewMaterial(d.Name, &code, types.MustMoney(d.Price))
}
