package repository

import (
	"time"

	"github.com/fjod/go_order/internal/domain"
)

func sampleState(t time.Time) domain.CartState {
	return domain.CartState{
		SchemaVersion: domain.CartSchemaVersion,
		Context:       domain.CartContext{RestaurantID: "r1", RestaurantName: "Blue Door", CurrencySymbol: "$"},
		Lines: []domain.CartLine{
			{
				LineKey:   "A|size:large|",
				ItemID:    "A",
				Title:     "Burger",
				Price:     10,
				UnitPrice: domain.Float(12.5),
				Qty:       2,
				Modifiers: []domain.ModifierSelection{{GroupID: "size", OptionIDs: []string{"large"}}},
				Seq:       2,
			},
			{LineKey: "legacy-7", ItemID: "B", Title: "Fries", Price: 4, Qty: 1, Note: "no salt", Seq: 1},
		},
		Seq:       2,
		UpdatedAt: t,
	}
}
