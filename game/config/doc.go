// Package config provides configuration for the Simon Says server.
//
// The config package handles:
//   - The known-board table mapping board ids to display colors
//   - Loading and validating that table from a JSON file
//   - Process settings read from the environment
//
// Board Table Format:
//
//	{
//	  "boards": [
//	    {"id": "9072791", "color": "green"},
//	    {"id": "9132300", "color": "red"}
//	  ]
//	}
//
// When no file is configured the built-in table of four boards is used.
//
// Environment:
//
// Settings are read with caarlos0/env. Every variable is prefixed with
// SIMON_ except the ngrok ones, which keep the names ngrok itself uses.
// CLI flags override anything read here.
package config
