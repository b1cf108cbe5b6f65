package migrations

import (
	"github.com/pocketbase/pocketbase/core"
	m "github.com/pocketbase/pocketbase/migrations"
)

func init() {
	m.Register(func(app core.App) error {
		venues, err := app.FindCollectionByNameOrId("venues")
		if err != nil {
			return err
		}

		// no API rules: weddings are only listed through the gate endpoints,
		// which never expose the passcode
		collection := core.NewBaseCollection("weddings")

		collection.Fields.Add(
			&core.RelationField{
				Name:          "venue",
				CollectionId:  venues.Id,
				MaxSelect:     1,
				Required:      true,
				CascadeDelete: true,
			},
			&core.TextField{
				Name: "groom_name",
				Max:  200,
			},
			&core.TextField{
				Name: "bride_name",
				Max:  200,
			},
			&core.DateField{
				Name:     "time",
				Required: true,
			},
			&core.TextField{
				Name:     "passcode",
				Required: true,
				Hidden:   true,
				Min:      4,
				Max:      4,
				Pattern:  `^[0-9]{4}$`,
			},
			&core.AutodateField{
				Name:     "created",
				OnCreate: true,
			},
			&core.AutodateField{
				Name:     "updated",
				OnCreate: true,
				OnUpdate: true,
			},
		)

		collection.AddIndex("idx_weddings_venue_time", false, "`venue`, `time`", "")

		return app.Save(collection)
	}, func(app core.App) error {
		collection, err := app.FindCollectionByNameOrId("weddings")
		if err != nil {
			return err
		}
		return app.Delete(collection)
	})
}
