package dbcapabilities

import "strings"

// DatabaseID is the canonical identifier for a database engine supported by sqlgate.
// Use these constants to look up capability information.
type DatabaseID string

const (
	PostgreSQL DatabaseID = "postgres"
	MySQL      DatabaseID = "mysql"
	MariaDB    DatabaseID = "mariadb"
	SQLServer  DatabaseID = "mssql"
)

// PlaceholderStyle enumerates the parameter placeholder dialects the engines use.
type PlaceholderStyle string

const (
	PlaceholderQuestion PlaceholderStyle = "question" // ?, ?, ?
	PlaceholderDollar   PlaceholderStyle = "dollar"   // $1, $2, $3
	PlaceholderNamed    PlaceholderStyle = "named"    // @p1, @p2, @p3
)

// Capability describes what a database engine supports in a way the adapter
// layer can consume uniformly.
type Capability struct {
	// Human-friendly vendor or product name, e.g., "PostgreSQL".
	Name string `json:"name"`

	// Canonical ID used across the codebase (see DatabaseID constants), e.g., "postgres".
	ID DatabaseID `json:"id"`

	// Default TCP port for the engine.
	DefaultPort int `json:"defaultPort"`

	// Symbol used to quote identifiers (table/column names).
	IdentifierQuote string `json:"identifierQuote"`

	// Whether nested transactions via savepoints are supported.
	SupportsSavepoints bool `json:"supportsSavepoints"`

	// Native parameter placeholder dialect.
	PlaceholderStyle PlaceholderStyle `json:"placeholderStyle"`

	// Whether the engine exposes a built-in/system database and its typical names.
	HasSystemDatabase bool     `json:"hasSystemDatabase"`
	SystemDatabases   []string `json:"systemDatabases,omitempty"`

	// Common aliases (URL schemes, driver names, env labels) that map to this engine.
	Aliases []string `json:"aliases,omitempty"`
}

// All is a registry of capabilities keyed by the canonical database ID.
var All = map[DatabaseID]Capability{
	PostgreSQL: {
		Name:               "PostgreSQL",
		ID:                 PostgreSQL,
		DefaultPort:        5432,
		IdentifierQuote:    `"`,
		SupportsSavepoints: true,
		PlaceholderStyle:   PlaceholderDollar,
		HasSystemDatabase:  true,
		SystemDatabases:    []string{"postgres"},
		Aliases:            []string{"postgresql", "pgsql", "pgx"},
	},
	MySQL: {
		Name:               "MySQL",
		ID:                 MySQL,
		DefaultPort:        3306,
		IdentifierQuote:    "`",
		SupportsSavepoints: true,
		PlaceholderStyle:   PlaceholderQuestion,
		HasSystemDatabase:  true,
		SystemDatabases:    []string{"mysql"},
		Aliases:            []string{"aurora-mysql"},
	},
	MariaDB: {
		Name:               "MariaDB",
		ID:                 MariaDB,
		DefaultPort:        3306,
		IdentifierQuote:    "`",
		SupportsSavepoints: true,
		PlaceholderStyle:   PlaceholderQuestion,
		HasSystemDatabase:  true,
		SystemDatabases:    []string{"mysql"},
	},
	SQLServer: {
		Name:               "Microsoft SQL Server",
		ID:                 SQLServer,
		DefaultPort:        1433,
		IdentifierQuote:    `"`,
		SupportsSavepoints: true,
		PlaceholderStyle:   PlaceholderNamed,
		HasSystemDatabase:  true,
		SystemDatabases:    []string{"master", "msdb", "tempdb"},
		Aliases:            []string{"sqlserver", "azuresql"},
	},
}

// nameToID is a normalized lookup index from any known name/alias to the canonical DatabaseID.
var nameToID map[string]DatabaseID

func init() {
	nameToID = make(map[string]DatabaseID, len(All)*2)
	for id, cap := range All {
		// Canonical ID
		nameToID[strings.ToLower(string(id))] = id
		// Also record vendor/product name
		if cap.Name != "" {
			nameToID[strings.ToLower(cap.Name)] = id
		}
		// Aliases
		for _, a := range cap.Aliases {
			if a == "" {
				continue
			}
			nameToID[strings.ToLower(a)] = id
		}
	}
}

// ParseID attempts to resolve an arbitrary database name (canonical id, alias, or product name)
// to a canonical DatabaseID. Returns false if unknown.
func ParseID(name string) (DatabaseID, bool) {
	n := strings.ToLower(strings.TrimSpace(name))
	if n == "" {
		return "", false
	}
	id, ok := nameToID[n]
	return id, ok
}

// Get returns the capability for a canonical DatabaseID.
func Get(id DatabaseID) (Capability, bool) {
	c, ok := All[id]
	return c, ok
}

// MustGet returns the capability for a canonical DatabaseID and panics if unknown.
func MustGet(id DatabaseID) Capability {
	c, ok := Get(id)
	if !ok {
		panic("dbcapabilities: unknown database id: " + string(id))
	}
	return c
}

// GetByName resolves a name or alias and returns its capability.
func GetByName(name string) (Capability, bool) {
	if id, ok := ParseID(name); ok {
		return Get(id)
	}
	return Capability{}, false
}

// SupportsSavepoints reports whether the engine supports nested transactions
// via savepoints.
func SupportsSavepoints(id DatabaseID) bool {
	c, ok := Get(id)
	return ok && c.SupportsSavepoints
}

// IDs returns all canonical database IDs known to the registry.
func IDs() []DatabaseID {
	out := make([]DatabaseID, 0, len(All))
	for id := range All {
		out = append(out, id)
	}
	return out
}
