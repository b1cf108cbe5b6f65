package migrations

import (
	"github.com/pocketbase/pocketbase/core"
	m "github.com/pocketbase/pocketbase/migrations"
	"github.com/pocketbase/pocketbase/tools/types"
)

func init() {
	m.Register(func(app core.App) error {
		collection := core.NewBaseCollection("venues")

		// guests read venues anonymously; writes are superuser only
		collection.ListRule = types.Pointer("")
		collection.ViewRule = types.Pointer("")

		collection.Fields.Add(
			&core.TextField{
				Name:     "name",
				Required: true,
				Max:      200,
			},
			&core.URLField{
				Name: "review_url",
			},
			&core.NumberField{
				Name:    "rating_threshold",
				OnlyInt: true,
				Min:     types.Pointer(0.0),
				Max:     types.Pointer(5.0),
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

		return app.Save(collection)
	}, func(app core.App) error {
		collection, err := app.FindCollectionByNameOrId("venues")
		if err != nil {
			return err
		}
		return app.Delete(collection)
	})
}
