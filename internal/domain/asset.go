package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Asset is a purchased NFT or other collectible.
type Asset struct {
	ID            int64           `db:"id" json:"id"`
	Project       string          `db:"project" json:"project"`
	PurchasePrice decimal.Decimal `db:"purchase_price" json:"purchase_price"`
	PurchaseDate  time.Time       `db:"purchase_date" json:"purchase_date"`
	CreatedAt     time.Time       `db:"created_at" json:"created_at"`
}

// Sale records the sale of a previously purchased asset.
type Sale struct {
	ID            int64           `db:"id" json:"id"`
	AssetID       int64           `db:"asset_id" json:"asset_id"`
	PurchasePrice decimal.Decimal `db:"purchase_price" json:"purchase_price"`
	SalePrice     decimal.Decimal `db:"sale_price" json:"sale_price"`
	SaleDate      time.Time       `db:"sale_date" json:"sale_date"`
	CreatedAt     time.Time       `db:"created_at" json:"created_at"`
}

func (s Sale) Profit() decimal.Decimal {
	return s.SalePrice.Sub(s.PurchasePrice)
}

type AssetFilter struct {
	Project string
	From    *time.Time
	To      *time.Time
}

type SaleFilter struct {
	AssetID *int64
	From    *time.Time
	To      *time.Time
}
