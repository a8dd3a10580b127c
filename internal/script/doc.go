// Package script reads and writes the fixture text format.
//
// A fixture script is a sequence of ';'-terminated statements:
//
//	scope({c0_Car:4, c0_Person:4});
//	defaultScope(1);
//	c0_Car = Clafer("c0_Car").withCard(4, 4);
//	c0_owner = c0_Car.addChild("c0_owner").withCard(1, 1);
//	c0_owner.refTo(c0_Person);
//	Constraint(all([disjDecl([c1 = local("c1"), c2 = local("c2")], global(c0_Car))], ...));
//
// Parse turns text into positioned statements, Load replays them through a
// builder.Builder, and Format prints a fixture back in a stable order such
// that Format(Load(Parse(Format(f)))) == Format(f).
package script
