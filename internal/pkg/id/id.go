package id

import "github.com/oklog/ulid/v2"

// New generates a new ULID string. ULIDs sort lexicographically by creation
// time, which is what makes them usable as the verification table's
// recency-ordered sort key. ulid.Make draws from the package's locked
// monotonic entropy source, so two IDs minted in the same millisecond still
// order by insertion sequence rather than at random.
func New() string {
	return ulid.Make().String()
}
