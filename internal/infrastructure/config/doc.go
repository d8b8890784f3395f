// Package config loads and validates GridWatch Core configuration.
//
// Configuration is read from a YAML file, merged over hardcoded defaults,
// and finally overridden by GRIDWATCH_* environment variables. Validation
// runs after all three layers so a deployment cannot start with a missing
// JWT secret or an out-of-range port.
//
// Usage:
//
//	cfg, err := config.Load("configs/config.yaml")
//	if err != nil {
//	    return err
//	}
//	server, err := api.New(api.Deps{Config: cfg.API, ...})
package config
