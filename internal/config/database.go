package config

import (
	"fmt"
	"net"
	"net/url"
	"strconv"

	"github.com/go-sql-driver/mysql"

	"daogen/internal/sqlutil"
)

// ResolvedDialect parses the configured dialect.
func (d *DatabaseConfig) ResolvedDialect() (sqlutil.Dialect, error) {
	return sqlutil.ParseDialect(d.Dialect)
}

// DriverDSN returns the data source name handed to sql.Open. MySQL DSNs,
// given or built, always carry parseTime and clientFoundRows so timestamps
// scan as time.Time and an update reports matched rather than changed rows.
func (d *DatabaseConfig) DriverDSN() (string, error) {
	dialect, err := d.ResolvedDialect()
	if err != nil {
		return "", err
	}
	switch dialect {
	case sqlutil.MySQL:
		return d.mysqlDSN()
	case sqlutil.SQLite:
		if d.DSN != "" {
			return d.DSN, nil
		}
		return d.Database, nil
	default:
		if d.DSN != "" {
			return d.DSN, nil
		}
		return d.postgresURL(), nil
	}
}

func (d *DatabaseConfig) mysqlDSN() (string, error) {
	cfg := mysql.NewConfig()
	if d.DSN != "" {
		parsed, err := mysql.ParseDSN(d.DSN)
		if err != nil {
			return "", fmt.Errorf("invalid mysql dsn: %w", err)
		}
		cfg = parsed
	} else {
		cfg.User = d.User
		cfg.Passwd = d.Password
		cfg.Net = "tcp"
		cfg.Addr = net.JoinHostPort(d.Host, strconv.Itoa(d.port(3306)))
		cfg.DBName = d.Database
	}
	cfg.ParseTime = true
	cfg.ClientFoundRows = true
	return cfg.FormatDSN(), nil
}

func (d *DatabaseConfig) postgresURL() string {
	u := url.URL{
		Scheme: "postgres",
		Host:   net.JoinHostPort(d.Host, strconv.Itoa(d.port(5432))),
		Path:   "/" + d.Database,
	}
	if d.User != "" {
		if d.Password != "" {
			u.User = url.UserPassword(d.User, d.Password)
		} else {
			u.User = url.User(d.User)
		}
	}
	return u.String()
}

func (d *DatabaseConfig) port(fallback int) int {
	if d.Port > 0 {
		return d.Port
	}
	return fallback
}
