package config

import (
	"errors"
	"flag"
	"fmt"
	"net"
	"strconv"
	"time"
)

var errInvalidNetAddress = errors.New("need address in a form `host:port`")

// NetAddress is the -a flag value.
type NetAddress struct {
	Host string
	Port int
}

// ParseFlags parses all configuration flags.
//
// Flags:
//
//	-a server address in format [host]:[port]
//	-adapter-address remote backend base URL used by the client
//	-d database DSN
//	-c/-config JSON or YAML file path with configs
//	-token-sign-key token signing key
//	-token-issuer token issuer name
//	-token-duration token duration (e.g., "1h", "30m")
//	-session-token bearer token the client signs in with
//	-request-timeout request timeout (e.g., "30s", "1m")
//	-drain-interval queue drain period
//	-sweep-interval retention sweep period
//	-retention-days days of daily logs kept locally
//	-log-file client log file path
func ParseFlags() *StructuredConfig {
	var serverAddress NetAddress
	var adapterAddress string
	var databaseDSN string
	var configPath string
	var tokenSignKey string
	var tokenIssuer string
	var tokenDuration time.Duration
	var sessionToken string
	var requestTimeout time.Duration
	var drainInterval time.Duration
	var sweepInterval time.Duration
	var retentionDays int
	var logFile string

	flag.Var(&serverAddress, "a", "Net address host:port")
	flag.StringVar(&adapterAddress, "adapter-address", "", "Remote backend base URL")
	flag.StringVar(&databaseDSN, "d", "", "Database DSN")
	flag.StringVar(&configPath, "c", "", "Config file path")
	flag.StringVar(&configPath, "config", "", "Config file path (alias)")
	flag.StringVar(&tokenSignKey, "token-sign-key", "", "Token signing key")
	flag.StringVar(&tokenIssuer, "token-issuer", "", "Token issuer")
	flag.DurationVar(&tokenDuration, "token-duration", 0, "Token duration (e.g., 1h, 30m)")
	flag.StringVar(&sessionToken, "session-token", "", "Session bearer token")
	flag.DurationVar(&requestTimeout, "request-timeout", 0, "Request timeout (e.g., 30s, 1m)")
	flag.DurationVar(&drainInterval, "drain-interval", 0, "Queue drain interval")
	flag.DurationVar(&sweepInterval, "sweep-interval", 0, "Retention sweep interval")
	flag.IntVar(&retentionDays, "retention-days", 0, "Days of daily logs kept locally")
	flag.StringVar(&logFile, "log-file", "", "Client log file path")

	flag.Parse()

	return &StructuredConfig{
		App: App{
			TokenSignKey:  tokenSignKey,
			TokenIssuer:   tokenIssuer,
			TokenDuration: tokenDuration,
			SessionToken:  sessionToken,
		},
		Storage: Storage{
			DB: DB{
				DSN: databaseDSN,
			},
		},
		Server: Server{
			HTTPAddress:    serverAddress.String(),
			RequestTimeout: requestTimeout,
		},
		Adapter: Adapter{
			HTTPAddress:    adapterAddress,
			RequestTimeout: requestTimeout,
		},
		Workers: Workers{
			DrainInterval: drainInterval,
			SweepInterval: sweepInterval,
		},
		Sync:           Sync{RetentionDays: retentionDays},
		Log:            Log{FilePath: logFile},
		ConfigFilePath: configPath,
	}
}

// String returns host:port, or "" when nothing was set.
func (a *NetAddress) String() string {
	if a.Host == "" && a.Port == 0 {
		return ""
	}
	return net.JoinHostPort(a.Host, strconv.Itoa(a.Port))
}

// Set implements flag.Value. The host must be "localhost", an IP literal
// (IPv6 in brackets) or empty for all interfaces; the port must be 1-65535.
func (a *NetAddress) Set(s string) error {
	host, rawPort, err := net.SplitHostPort(s)
	if err != nil {
		return fmt.Errorf("%w: %w", errInvalidNetAddress, err)
	}

	port, err := strconv.Atoi(rawPort)
	if err != nil {
		return fmt.Errorf("%w: port %q: %w", errInvalidNetAddress, rawPort, err)
	}
	if port < 1 || port > 65535 {
		return fmt.Errorf("%w: port %d out of range", errInvalidNetAddress, port)
	}

	if host != "" && host != "localhost" && net.ParseIP(host) == nil {
		return fmt.Errorf("%w: host %q is not an IP address", errInvalidNetAddress, host)
	}

	a.Host = host
	a.Port = port
	return nil
}
