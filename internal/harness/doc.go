// Package harness runs rule scenarios as executable conformance tests.
//
// A scenario seeds a fresh in-memory library, runs the configured rules in
// one batch session, persists the modified records and then checks
// assertions against the report and the stored library.
//
// # Scenario Format
//
// Scenarios are YAML files:
//
//	name: normalize_genre
//	description: "Lowercase genres are capitalized"
//	config:
//	  rules:
//	    - "genre:rock genre=Rock"
//	  policy: besteffort
//	albums:
//	  - { album: "Abbey Road", genre: rock, year: 1969 }
//	items:
//	  - { title: Something, path: /music/a.mp3, album_id: 1 }
//	assertions:
//	  - type: modified_count
//	    count: 1
//	  - type: final_state
//	    entity: album
//	    query: ["album:Abbey"]
//	    expect: { genre: Rock }
//	    absent: [mood]
//
// The config block has the same shape as a tagrules config file. Seeded
// records get ids in file order, albums before items, starting at 1.
//
// # Assertion Types
//
//   - modified_count: the number of records the run modified
//   - modified_order: the modified records in first-modification order
//   - error_count: the number of records skipped under besteffort
//   - run_error: the run aborted with an error containing the text
//   - final_state: every stored record matching the query has the expected fields
//
// # Deterministic Testing
//
// Every scenario uses a fixed session id and an isolated in-memory
// database, so reports are byte-stable and can be compared against golden
// files with RunWithGolden.
package harness
