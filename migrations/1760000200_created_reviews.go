package migrations

import (
	"github.com/pocketbase/pocketbase/core"
	m "github.com/pocketbase/pocketbase/migrations"
	"github.com/pocketbase/pocketbase/tools/types"

	"wedding-gate/models"
)

func init() {
	m.Register(func(app core.App) error {
		weddings, err := app.FindCollectionByNameOrId("weddings")
		if err != nil {
			return err
		}

		collection := core.NewBaseCollection("reviews")

		collection.Fields.Add(
			&core.RelationField{
				Name:          "wedding",
				CollectionId:  weddings.Id,
				MaxSelect:     1,
				Required:      true,
				CascadeDelete: true,
			},
			&core.SelectField{
				Name:      "author_role",
				MaxSelect: 1,
				Required:  true,
				Values:    []string{string(models.AuthorCouple), string(models.AuthorGuest)},
			},
			&core.NumberField{
				Name:     "rating",
				Required: true,
				OnlyInt:  true,
				Min:      types.Pointer(float64(models.MinRating)),
				Max:      types.Pointer(float64(models.MaxRating)),
			},
			&core.TextField{
				Name: "content",
				Max:  5000,
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

		collection.AddIndex("idx_reviews_wedding_created", false, "`wedding`, `created`", "")

		return app.Save(collection)
	}, func(app core.App) error {
		collection, err := app.FindCollectionByNameOrId("reviews")
		if err != nil {
			return err
		}
		return app.Delete(collection)
	})
}
