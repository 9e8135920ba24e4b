// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

/*
Package hwverify provides the building blocks of a cycle-accurate verification
harness for hardware designs that are only reachable through named signal
ports.

A Sim owns the signals and any number of free-running clock domains. Harness
code runs as cooperative tasks that suspend only while waiting for the next
edge of a clock (Task.Edge) or for an item of a Queue. Tasks resumed on the
same edge all observe the same committed signal values: writes are pending
until every task and device update scheduled for that edge has run.

Device models (or adapters to an external simulator) register edge callbacks
with OnEdge and see the exact same signal snapshot as the tasks.

Port structs are bound to signals by field tags:

	type Bus struct {
		Read    *hwverify.Signal `hw:"in"`
		Address *hwverify.Signal `hw:"in,address,32"`
		Valid   *hwverify.Signal `hw:"out,readdatavalid"`
	}

	var b Bus
	err := hwverify.Bind(sim, &b, "read=m_read, address=m_address")

*/
package hwverify
