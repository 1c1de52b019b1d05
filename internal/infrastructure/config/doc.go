// Package config loads and validates the service configuration.
//
// Settings come from three layers, later layers winning: hardcoded
// defaults, the YAML file passed to Load, and GESTAO_* environment
// variables (GESTAO_DATABASE_PATH, GESTAO_API_PORT, GESTAO_LOG_LEVEL,
// GESTAO_JWT_SECRET). Load validates the merged result and refuses to
// start the service on errors such as a missing or short JWT secret.
//
//	cfg, err := config.Load("configs/config.yaml")
//	if err != nil {
//	    return err
//	}
//
// Keep the config file at mode 0600 when it carries the JWT secret; in
// production prefer setting GESTAO_JWT_SECRET instead.
package config
