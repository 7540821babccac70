package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml"

	airport "github.com/hugr-lab/airport-solr"
	"github.com/hugr-lab/airport-solr/catalog"
	"github.com/hugr-lab/airport-solr/registry"
	"github.com/hugr-lab/airport-solr/solr"
	"github.com/hugr-lab/airport-solr/table"
)

// Config is the server configuration file.
//
//	listen = ":50051"
//	metrics = ":9090"
//	transactions = true
//	read_only = ["analyst"]
//
//	[tokens]
//	"secret-token" = "etl"
//
//	[[table]]
//	name = "movies"
//	locator = "http://solr1:8983/solr,http://solr2:8983/solr"
//	collection = "movies"
//	  [[table.column]]
//	  name = "id"
//	  type = "string"
//	  [[table.column]]
//	  name = "year"
//	  type = "int64"
//	  field = "year_i"
//	  nullable = true
type Config struct {
	Listen         string `toml:"listen"`
	Address        string `toml:"address"`
	Metrics        string `toml:"metrics"`
	Schema         string `toml:"schema"`
	SplitSize      int    `toml:"split_size"`
	MaxMessageSize int    `toml:"max_message_size"`
	LogLevel       string `toml:"log_level"`
	LogFormat      string `toml:"log_format"`
	Transactions   bool   `toml:"transactions"`
	// Warmup connects every collection before serving.
	Warmup bool `toml:"warmup"`

	Solr SolrConfig `toml:"solr"`

	// Tokens maps accepted bearer tokens to identities. Empty disables
	// authentication.
	Tokens map[string]string `toml:"tokens"`

	// ReadOnly lists identities that may scan but not write.
	ReadOnly []string `toml:"read_only"`

	Tables []TableConfig `toml:"table"`
}

// SolrConfig configures the connections of every collection.
type SolrConfig struct {
	UseLiveNodes bool   `toml:"use_live_nodes"`
	Timeout      string `toml:"timeout"`
	RetryMax     int    `toml:"retry_max"`
	Username     string `toml:"username"`
	Password     string `toml:"password"`
	Token        string `toml:"token"`
}

// TableConfig is one [[table]] block.
type TableConfig struct {
	Name            string            `toml:"name"`
	Comment         string            `toml:"comment"`
	Locator         string            `toml:"locator"`
	Collection      string            `toml:"collection"`
	Query           string            `toml:"query"`
	Facet           string            `toml:"facet"`
	Sort            string            `toml:"sort"`
	BatchSize       int               `toml:"batch_size"`
	Overwrite       bool              `toml:"overwrite"`
	RequiredFilters []string          `toml:"required_filters"`
	Columns         []table.ColumnDef `toml:"column"`
}

func defaultConfig() Config {
	return Config{
		Listen:    ":50051",
		LogLevel:  "info",
		LogFormat: "text",
	}
}

// loadConfig reads a TOML configuration file over the defaults.
func loadConfig(path string) (Config, error) {
	cfg := defaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// solrConfig returns the connection settings shared by every collection.
func (c Config) solrConfig(logger *slog.Logger) (solr.Config, error) {
	sc := solr.Config{
		UseLiveNodes: c.Solr.UseLiveNodes,
		RetryMax:     c.Solr.RetryMax,
		Logger:       logger,
	}
	if c.Solr.Timeout != "" {
		d, err := time.ParseDuration(c.Solr.Timeout)
		if err != nil {
			return sc, fmt.Errorf("solr timeout: %w", err)
		}
		sc.Timeout = d
	}
	switch {
	case c.Solr.Token != "":
		sc.Auth = solr.BearerToken(c.Solr.Token)
	case c.Solr.Username != "":
		sc.Auth = solr.BasicAuth(c.Solr.Username, c.Solr.Password)
	}
	return sc, nil
}

// authenticator returns the bearer authentication of the configured
// tokens, or nil when none are configured.
func (c Config) authenticator() airport.Authenticator {
	if len(c.Tokens) == 0 {
		return nil
	}
	a := airport.StaticTokens(c.Tokens)
	if len(c.ReadOnly) > 0 {
		a = airport.ReadOnly(a, c.ReadOnly...)
	}
	return a
}

// tableDefs converts the [[table]] blocks into catalog definitions and the
// connections they need.
func (c Config) tableDefs() ([]catalog.TableDef, []registry.Target, error) {
	defs := make([]catalog.TableDef, 0, len(c.Tables))
	targets := make([]registry.Target, 0, len(c.Tables))
	seen := make(map[string]bool)
	for _, t := range c.Tables {
		schema, fields, err := table.SchemaFromColumns(t.Columns)
		if err != nil {
			return nil, nil, fmt.Errorf("table %s: %w", t.Name, err)
		}
		defs = append(defs, catalog.TableDef{
			Name:    t.Name,
			Comment: t.Comment,
			Config: table.Config{
				ClusterLocator:       t.Locator,
				Collection:           t.Collection,
				QueryString:          t.Query,
				Columns:              fields,
				Schema:               schema,
				FacetField:           t.Facet,
				SortField:            t.Sort,
				BatchSize:            t.BatchSize,
				Overwrite:            t.Overwrite,
				RequiredFilterFields: t.RequiredFilters,
			},
		})
		if !seen[t.Collection] {
			seen[t.Collection] = true
			targets = append(targets, registry.Target{Locator: t.Locator, Collection: t.Collection})
		}
	}
	return defs, targets, nil
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	err := level.UnmarshalText([]byte(s))
	return level, err
}

// newLogger builds the process logger.
func newLogger(w io.Writer, level, format string) (*slog.Logger, error) {
	lvl, err := parseLevel(level)
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: lvl}
	switch strings.ToLower(format) {
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	case "text", "":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	default:
		return nil, fmt.Errorf("unknown log format %q", format)
	}
}
