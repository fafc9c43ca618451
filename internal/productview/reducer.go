// Package productview holds the product detail page state and its reducer.
package productview

// ClearProductDetails resets the product detail view.
const ClearProductDetails = "CLEAR_PRODUCT_DETAILS"

type Review struct {
	ID        string `json:"_id,omitempty"`
	Name      string `json:"name,omitempty"`
	Rating    int    `json:"rating,omitempty"`
	Comment   string `json:"comment,omitempty"`
	User      string `json:"user,omitempty"`
	CreatedAt string `json:"createdAt,omitempty"`
}

// Product is the catalogue entry shown on the detail page. Reviews is always
// present in JSON, empty when there are none.
type Product struct {
	ID           string   `json:"_id,omitempty"`
	Name         string   `json:"name,omitempty"`
	Image        string   `json:"image,omitempty"`
	Brand        string   `json:"brand,omitempty"`
	Category     string   `json:"category,omitempty"`
	Description  string   `json:"description,omitempty"`
	Price        float64  `json:"price,omitempty"`
	CountInStock int      `json:"countInStock,omitempty"`
	Rating       float64  `json:"rating,omitempty"`
	NumReviews   int      `json:"numReviews,omitempty"`
	Reviews      []Review `json:"reviews"`
}

type State struct {
	Loading bool    `json:"loading"`
	Product Product `json:"product"`
}

// Action is a dispatched state change. Payload is ignored by this reducer.
type Action struct {
	Type    string `json:"type"`
	Payload any    `json:"payload,omitempty"`
}

func emptyProduct() Product {
	return Product{Reviews: []Review{}}
}

// InitialState is the state before any action is dispatched.
func InitialState() State {
	return State{Product: emptyProduct()}
}

// Reduce applies action to state. ClearProductDetails always yields a loading
// state with an empty product; every other action returns state unchanged.
func Reduce(state State, action Action) State {
	switch action.Type {
	case ClearProductDetails:
		return State{Loading: true, Product: emptyProduct()}
	default:
		return state
	}
}
