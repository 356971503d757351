// Package rule parses textual modification rules and applies their
// change-sets to records.
//
// A rule is a list of tokens:
//
//	?album | ?item       target entity type (default: album)
//	<field>=<value>      mutation
//	<field>!             deletion (no '=' or ':' in the token)
//	<fragment>           anything else is a query fragment
//
// For example
//
//	?item genre=Rock bitrate! artist:Beatles
//
// targets items whose artist contains "Beatles", sets genre to "Rock" and
// deletes bitrate.
//
// A Rule memoizes its compiled query per entity type, so compiling the same
// rule for the same type twice returns the identical *query.Compiled.
package rule
