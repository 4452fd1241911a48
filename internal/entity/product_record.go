package entity

// ProductRecord is the catalog entry returned for a scanned code.
// BarCode and Ean13 are nil when the server omits them or sends null.
type ProductRecord struct {
	ID                  string  `json:"id"`
	NameEs              string  `json:"name_es"`
	Reference           string  `json:"reference"`
	InternalPackBarcode string  `json:"internalPackBarcode"`
	Dun14               string  `json:"dun14"`
	BarCode             *string `json:"barCode,omitempty"`
	Ean13               *string `json:"ean13,omitempty"`
}
