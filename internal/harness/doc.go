// Package harness runs conformance scenarios against the query compiler.
//
// A scenario declares shapes and mappings, loads source documents, and
// compiles a flow of query strings into plans. Every plan is executed twice:
// in memory over the decoded documents and as SQL against a SQLite store.
// A step whose two executions disagree fails the scenario.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: scenario_name
//	description: "What this scenario validates"
//	specs:
//	  - specs/catalog.cue
//	documents:
//	  Customer: documents/customers.json
//	source: Customer
//	destination: CustomerView
//	options:
//	  searchDepth: 1
//	flow:
//	  - name: adults
//	    query: "filter[age][$gte]=79&fields[0]=name&fields[1]=age"
//	    expect:
//	      predicate: "(p.age >= 79)"
//	      total: 2
//	      items:
//	        - name: Charles Babbage
//	        - name: Grace Hopper
//	  - name: wrong_pair
//	    destination: AddressView
//	    expect:
//	      error: MISSING_MAPPING
//	assertions:
//	  - type: result_contains
//	    step: adults
//	    where: { name: Grace Hopper }
//	  - type: stored_count
//	    shape: Customer
//	    count: 3
//
// Spec and document paths are relative to the scenario file.
//
// # Assertion Types
//
// The following assertion types are supported:
//
//   - result_contains: Verifies a step returned an item matching a subset
//   - result_order: Verifies a field's values appear in order in a step's page
//   - result_count: Verifies a step matched exactly N records
//   - cache_hit: Verifies whether a step's projection came from the plan cache
//   - stored_count: Verifies the store holds N documents of a shape
//
// # Golden Snapshots
//
// RunWithGolden compares the JSON snapshot of every step (plan predicate,
// ordering, cache outcome, and the returned page) against
// testdata/golden/<scenario>.golden. Each scenario runs in a fresh in-memory
// database with a fresh compiler, so snapshots are reproducible.
package harness
