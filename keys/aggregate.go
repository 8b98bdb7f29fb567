package keys

import "github.com/henrycg/Dissent/group"

// AggregatePublicKeys computes the product of a multiset of public keys,
// spec §4.2's "Aggregate key set" — grounded on
// original_source/src/Crypto/BlogDrop/PublicKeySet.hpp. Servers and
// clients each precompute this once per phase from their respective
// group member list.
func AggregatePublicKeys(g group.Group, pks []group.Element) group.Element {
	product := g.Identity()
	for _, pk := range pks {
		product = g.Mul(product, pk)
	}
	return product
}
