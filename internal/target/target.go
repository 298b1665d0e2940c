package target

import (
	"fmt"
	"strings"
)

// DBType identifies one of the supported backends.
type DBType string

const (
	Firebird   DBType = "firebird"
	MySQL      DBType = "mysql"
	PostgreSQL DBType = "postgresql"
	MariaDB    DBType = "mariadb"
)

// OSType is informational only; it is carried through to the output so
// results from different hosts can be compared.
type OSType string

const (
	Windows OSType = "windows"
	Linux   OSType = "linux"
)

var defaultPorts = map[DBType]int{
	Firebird:   3050,
	MySQL:      3306,
	PostgreSQL: 5432,
	MariaDB:    3306,
}

// Config describes one database endpoint to benchmark. It is built once at
// startup and never mutated afterwards.
type Config struct {
	DBType   DBType
	OSType   OSType
	Name     string
	Host     string
	Port     int
	Database string
	User     string
	Password string
	Charset  string
}

// New normalizes the enum fields, applies the per-backend default port and
// the UTF8 default charset, and validates the result.
func New(cfg Config) (Config, error) {
	cfg.DBType = DBType(strings.ToLower(string(cfg.DBType)))
	cfg.OSType = OSType(strings.ToLower(string(cfg.OSType)))

	if cfg.OSType == "" {
		cfg.OSType = Linux
	}
	if cfg.Charset == "" {
		cfg.Charset = "UTF8"
	}
	if cfg.Port == 0 {
		cfg.Port = defaultPorts[cfg.DBType]
	}
	if cfg.Name == "" {
		cfg.Name = fmt.Sprintf("%s/%s@%s", cfg.DBType, cfg.OSType, cfg.Host)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the enum fields and the required connection fields.
func (c Config) Validate() error {
	if _, ok := defaultPorts[c.DBType]; !ok {
		return fmt.Errorf("invalid db_type %q (supported: firebird, mysql, postgresql, mariadb)", c.DBType)
	}
	if c.OSType != Windows && c.OSType != Linux {
		return fmt.Errorf("invalid os_type %q (supported: windows, linux)", c.OSType)
	}

	var missing []string
	for _, f := range []struct {
		name, val string
	}{
		{"host", c.Host},
		{"database", c.Database},
		{"user", c.User},
		{"password", c.Password},
	} {
		if f.val == "" {
			missing = append(missing, f.name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing fields for %s: %s", c.Name, strings.Join(missing, ", "))
	}
	return nil
}
