// Package identity implements scoped identifiers, the two-part keys used for
// every entity in a transit feed.
//
// A scoped identifier pairs an owning scope (usually the agency id) with a
// locally unique id. It serializes to a single token by joining both parts
// with Separator; parsing splits on the first occurrence of Separator, so the
// local part may itself contain the separator while the scope may not.
//
// # Usage
//
//	id, err := identity.Parse("agency_S1")
//	moved, err := identity.Rescope(id, "metro")
//	fmt.Println(identity.Format(moved)) // metro_S1
package identity
