package health

import (
	"context"
	"errors"

	"github.com/kiranaops/bolbill/internal/catalog"
)

// Pinger is implemented by stores that can verify their backing connection,
// such as the PostgreSQL draft store.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Catalog returns a readiness check that fails until the product catalog is
// loaded and non-empty. An empty catalog means every spoken order would come
// back unmatched, so the instance should not receive traffic yet.
func Catalog(lister catalog.Lister) Checker {
	return Checker{
		Name: "catalog",
		Check: func(ctx context.Context) error {
			products, err := lister.ListProducts(ctx)
			if err != nil {
				return err
			}
			if len(products) == 0 {
				return errors.New("catalog is empty")
			}
			return nil
		},
	}
}

// Drafts returns a readiness check that pings the shared draft store.
func Drafts(p Pinger) Checker {
	return Checker{
		Name:  "drafts",
		Check: p.Ping,
	}
}
