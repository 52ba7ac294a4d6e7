// Package config loads the botflow binary configuration.
//
// Sources, lowest precedence first: built-in defaults, botflow.yaml (or --config),
// a .env file, BOTFLOW_* environment variables and command line flags. Nested keys
// map to variables with underscores: store.driver is BOTFLOW_STORE_DRIVER.
package config
