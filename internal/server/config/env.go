package config

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"
)

// LookupFunc matches os.LookupEnv.
type LookupFunc func(key string) (string, bool)

// parseEnv overlays values from the environment. Variable names follow the
// deployment convention of the service (APP_*, JWT_*, S3_*). Empty values
// are ignored. Integers that do not parse are reported, and the field keeps
// its previous value.
func parseEnv(config *Config, lookup LookupFunc) error {
	get := func(key string) string {
		v, ok := lookup(key)
		if !ok {
			return ""
		}
		return v
	}

	setString(&config.Environment, get("APP_ENV"))
	setString(&config.LogLevel, get("LOG_LEVEL"))
	setString(&config.GRPCAddr, get("GRPC_ADDR"))
	setString(&config.DatabaseDSN, get("DATABASE_URL"))
	setString(&config.SecretKey, get("JWT_SECRET_KEY"))
	setString(&config.SigningAlgorithm, get("JWT_ALGORITHM"))
	setString(&config.S3RootUser, get("S3_ROOT_USER"))
	setString(&config.S3RootPassword, get("S3_ROOT_PASSWORD"))
	setString(&config.S3Bucket, get("S3_BUCKET"))
	setString(&config.S3Region, get("S3_REGION"))
	setString(&config.S3BaseEndpoint, get("S3_BASE_ENDPOINT"))
	setString(&config.BootstrapAdminUsername, get("ADMIN_USERNAME"))
	setString(&config.BootstrapAdminEmail, get("ADMIN_EMAIL"))
	setString(&config.BootstrapAdminPassword, get("ADMIN_PASSWORD"))

	host, port := get("APP_HOST"), get("APP_PORT")
	if host != "" || port != "" {
		curHost, curPort, err := net.SplitHostPort(config.HTTPAddr)
		if err != nil {
			curHost, curPort = "", ""
		}
		if host == "" {
			host = curHost
		}
		if port == "" {
			port = curPort
		}
		config.HTTPAddr = net.JoinHostPort(host, port)
	}

	var errs []error
	intVar := func(key string, set func(n int)) {
		v := get(key)
		if v == "" {
			return
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s must be an integer, got %q", key, v))
			return
		}
		set(n)
	}

	intVar("JWT_ACCESS_TOKEN_EXPIRE_MINUTES", func(n int) {
		config.AccessTokenValidityDuration = time.Duration(n) * time.Minute
	})
	intVar("PASSWORD_HASH_COST", func(n int) {
		config.PasswordHashCost = n
	})
	intVar("SHUTDOWN_TIMEOUT_SEC", func(n int) {
		config.ShutdownTimeout = time.Duration(n) * time.Second
	})

	return errors.Join(errs...)
}
