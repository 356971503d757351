// Package ir provides the value model shared by every tagrules package.
//
// This package contains type definitions only. All other internal packages
// import ir; ir imports nothing internal. This keeps ir the foundational
// layer with no circular dependencies.
//
// Key design constraints:
//   - Field values are tagged variants (IRString, IRInt, IRBool, IRNull), never any
//   - NO float types anywhere - numeric fields are int64
//   - EntityType is a closed enum threaded explicitly through rules, queries and fetches
//   - Record is the narrow mutation/identity contract the rules core depends on
package ir
