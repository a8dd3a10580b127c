// Package builder constructs clafer fixtures statement by statement.
//
// Each operation mirrors one call of the fixture scripting surface
// (Clafer, Abstract, addChild, withCard, extending, refTo, refToUnique,
// Constraint, addConstraint, scope, defaultScope, intRange, stringLength)
// and fails fast on a malformed statement, leaving the fixture unchanged.
// Cross-cutting checks that need the whole fixture live in
// internal/compiler.Validate.
//
// Handles are immutable values issued by a Builder. A zero Handle, or one
// issued by a different Builder, does not resolve.
//
//	b := builder.New("cars")
//	car, _ := b.Clafer("c0_Car")
//	car, _ = b.WithCard(car, 4, 4)
//	owner, _ := b.AddChild(car, "c0_owner")
//
// A Builder is not safe for concurrent use.
package builder
