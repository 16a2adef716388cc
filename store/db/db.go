package db

import (
	"github.com/pkg/errors"

	"github.com/memora/memora/internal/profile"
	"github.com/memora/memora/store"
	"github.com/memora/memora/store/db/localfile"
	"github.com/memora/memora/store/db/qdrantdb"
)

// NewStore builds the two-tier store from the profile: Qdrant as the primary
// vector backend and the local file document as the durable fallback. Both
// tiers are always constructed; the proxy decides at runtime which one
// serves traffic.
func NewStore(p *profile.Profile) (*store.Store, error) {
	primary, err := qdrantdb.NewDB(p)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create qdrant driver")
	}

	fallback, err := localfile.NewDB(p)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create local fallback driver")
	}

	return store.New(primary, fallback, store.DefaultCollectionSchema()), nil
}
