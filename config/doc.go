// Package config loads the per-region, per-environment settings used by
// test suites and the apiprobe CLI.
//
// Settings live in YAML files laid out as:
//
//	<dir>/environments/<region>/<env>.yaml
//
// The selection defaults to env "test" and region "cn", and can be taken
// from the TEST_ENV and TEST_REGION environment variables:
//
//	settings, err := config.Load("config", config.SelectionFromEnv(os.LookupEnv))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(settings.API.BaseURL)
//
// Variable Substitution:
//
// String values may reference environment variables with ${NAME}. Every
// referenced variable must be set; a missing one fails the load with an
// error wrapping ErrMissingVariable:
//
//	database:
//	  password: ${DB_PASSWORD}
//
// Switching environment means loading another Selection. Loading never
// mutates the process environment.
//
// Configuration Validation:
//
// Validate returns a slice of ValidationError values; an empty slice means
// the settings are usable.
package config
