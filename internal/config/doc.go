// Package config loads the tagrules configuration file.
//
// The file is YAML, or CUE when its extension is .cue. Both forms share one
// layout:
//
//	rules:
//	  - "genre=Pop year:2000..2010"
//	  - ["?item", "bitrate!"]
//	showchanges: true
//	confirm: true
//	onimport: false
//	policy: failfast
//	prefixes:
//	  "~": regexp
//
// Each rule is a shell-quoted string or a token list. Rules are parsed once,
// at load, and the parsed rules are reused for the life of the Config.
package config
