// Package harness runs YAML scenarios against a fresh in-memory database.
//
// A scenario names a CUE schema directory and lists steps. Each step is
// either a mutate request or a resolve call, optionally followed by an
// expect clause:
//
//	name: order-with-customer
//	description: inserting an order creates its customer
//	schema: ../schema
//	steps:
//	  - mutate:
//	      action: insert
//	      model: Order
//	      data: {note: first, customer: {name: Jim}}
//	    expect:
//	      generated: [id]
//	  - resolve:
//	      model: Order
//	      query: {filters: {customer: {name: jim}}, count: true}
//	    expect:
//	      count: 1
//
// Every step runs in its own transaction, which is rolled back when the
// step's result carries errors. Generated keys, timestamps and request ids
// come from deterministic sources, so the trace of a run is byte-stable
// and can be compared against a golden file with RunWithGolden.
package harness
