package migrations

import (
	"github.com/pocketbase/pocketbase/core"
	m "github.com/pocketbase/pocketbase/migrations"
)

func init() {
	m.Register(func(app core.App) error {
		events := core.NewBaseCollection("events")
		events.Fields.Add(
			&core.TextField{Name: "name", Required: true},
			&core.TextField{Name: "description"},
			&core.TextField{Name: "venue"},
			&core.DateField{Name: "start_time"},
			&core.NumberField{Name: "total_tickets", OnlyInt: true},
			&core.NumberField{Name: "available_tickets", OnlyInt: true},
			&core.TextField{Name: "price"},
			&core.TextField{Name: "currency"},
			&core.TextField{Name: "collection_id"},
			&core.TextField{Name: "machine_id"},
			&core.BoolField{Name: "active"},
			&core.AutodateField{Name: "created", OnCreate: true},
			&core.AutodateField{Name: "updated", OnCreate: true, OnUpdate: true},
		)
		events.AddIndex("idx_events_machine_id", true, "machine_id", "")
		if err := app.Save(events); err != nil {
			return err
		}

		tickets := core.NewBaseCollection("tickets")
		tickets.Fields.Add(
			&core.RelationField{Name: "event_id", Required: true, CollectionId: events.Id, MaxSelect: 1},
			&core.TextField{Name: "asset_id", Required: true},
			&core.TextField{Name: "owner", Required: true},
			&core.TextField{Name: "seat_label"},
			&core.SelectField{Name: "status", Values: []string{"purchased", "transferred", "used"}, MaxSelect: 1},
			&core.BoolField{Name: "used"},
			&core.AutodateField{Name: "created", OnCreate: true},
			&core.DateField{Name: "transferred_at"},
		)
		// The unique asset index is the deduplication contract: at most
		// one ticket per on-chain asset, no matter how often a mint is
		// reported.
		tickets.AddIndex("idx_tickets_asset_id", true, "asset_id", "")
		if err := app.Save(tickets); err != nil {
			return err
		}

		transactions := core.NewBaseCollection("transactions")
		transactions.Fields.Add(
			&core.RelationField{Name: "event_id", Required: true, CollectionId: events.Id, MaxSelect: 1},
			&core.TextField{Name: "wallet"},
			&core.TextField{Name: "payment_method"},
			&core.TextField{Name: "amount"},
			&core.TextField{Name: "currency"},
			&core.NumberField{Name: "quantity", OnlyInt: true},
			&core.SelectField{Name: "status", Values: []string{"pending", "successful"}, MaxSelect: 1},
			&core.RelationField{Name: "ticket_id", CollectionId: tickets.Id, MaxSelect: 1},
			&core.TextField{Name: "signature"},
			&core.AutodateField{Name: "created", OnCreate: true},
		)
		transactions.AddIndex("idx_transactions_status", false, "status", "")
		return app.Save(transactions)
	}, func(app core.App) error {
		for _, name := range []string{"transactions", "tickets", "events"} {
			collection, err := app.FindCollectionByNameOrId(name)
			if err != nil {
				continue
			}
			if err := app.Delete(collection); err != nil {
				return err
			}
		}
		return nil
	})
}
