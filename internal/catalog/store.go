package catalog

import "context"

type Product struct {
	ID          int64   `json:"id"`
	Name        string  `json:"name"`
	Price       float64 `json:"price"`
	ImageURL    string  `json:"imageUrl"`
	Category    string  `json:"category,omitempty"`
	Description string  `json:"description,omitempty"`
}

// NewProduct is a product before the store assigned its id.
type NewProduct struct {
	Name     string  `json:"name"`
	Price    float64 `json:"price"`
	ImageURL string  `json:"imageUrl"`
}

// Store holds the catalog in insertion order. List, Create and Delete
// initialize the store with the seed products on first use.
type Store interface {
	Ping(ctx context.Context) error
	List(ctx context.Context) ([]Product, error)
	Create(ctx context.Context, p NewProduct) (Product, error)
	// Delete reports whether a product with id existed.
	Delete(ctx context.Context, id int64) (bool, error)
}

var seedProducts = []Product{
	{ID: 1, Name: "Sample Product 1", Price: 1999, ImageURL: "/next.svg"},
	{ID: 2, Name: "Sample Product 2", Price: 2999, ImageURL: "/vercel.svg"},
}

// SeedProducts returns a copy of the records every fresh store starts with.
func SeedProducts() []Product {
	out := make([]Product, len(seedProducts))
	copy(out, seedProducts)
	return out
}

func maxSeedID() int64 {
	var m int64
	for _, p := range seedProducts {
		m = max(m, p.ID)
	}
	return m
}
