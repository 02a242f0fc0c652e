package shoppinglists

type AddItemInput struct {
	Name      string
	Purchased bool
}

// ItemPatch fields left nil are not changed.
type ItemPatch struct {
	Name      *string
	Purchased *bool
}
