// Package config defines the gateway settings and provides helpers to load,
// validate and save them in YAML format.
//
// Settings come from a YAML file overlaid with environment variables, so a
// deployment can also be configured from the environment alone:
//
//	<PRODUCT>_TOKEN, <PRODUCT>_OWNER, <PRODUCT>_REPO   declare or override a product
//	<PRODUCT>_CHANNELS                                 comma-separated product channels
//	ADDRESS, PORT                                      listen address
//	CHANNELS                                           comma-separated channels for every product
//	PUBLIC_URL                                         origin used in manifest URLs
//	LOG_LEVEL                                          logging level
package config
