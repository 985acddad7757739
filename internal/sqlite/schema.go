// Package sqlite implements the SQLite backend for the skulls trait registry.
package sqlite

// Schema DDL. Every statement is idempotent so Attach can run it against an
// existing database.
const (
	createCategories = `CREATE TABLE IF NOT EXISTS categories (
    idx INTEGER PRIMARY KEY,
    name TEXT NOT NULL UNIQUE,
    skip INTEGER NOT NULL DEFAULT 0
);`

	createVariants = `CREATE TABLE IF NOT EXISTS variants (
    category_idx INTEGER NOT NULL,
    idx INTEGER NOT NULL,
    name TEXT NOT NULL,
    display_name TEXT NOT NULL,
    art TEXT,
    PRIMARY KEY (category_idx, idx),
    UNIQUE (category_idx, name),
    FOREIGN KEY (category_idx) REFERENCES categories(idx)
);`

	createDependencies = `CREATE TABLE IF NOT EXISTS dependencies (
    position INTEGER PRIMARY KEY,
    category_idx INTEGER NOT NULL,
    variant_idx INTEGER NOT NULL,
    UNIQUE (category_idx, variant_idx),
    FOREIGN KEY (category_idx, variant_idx) REFERENCES variants(category_idx, idx)
);`

	createDependencyMembers = `CREATE TABLE IF NOT EXISTS dependency_members (
    dependency_position INTEGER NOT NULL,
    ordinal INTEGER NOT NULL,
    category_idx INTEGER NOT NULL,
    variant_idx INTEGER NOT NULL,
    PRIMARY KEY (dependency_position, ordinal),
    FOREIGN KEY (dependency_position) REFERENCES dependencies(position),
    FOREIGN KEY (category_idx, variant_idx) REFERENCES variants(category_idx, idx)
);`

	createSettings = `CREATE TABLE IF NOT EXISTS settings (
    key TEXT PRIMARY KEY,
    value TEXT NOT NULL
);`
)

const idxDependencyMembers = `CREATE INDEX IF NOT EXISTS idx_dependency_members_position ON dependency_members(dependency_position);`

// schemaDDL lists all statements in dependency order.
var schemaDDL = []string{
	createCategories,
	createVariants,
	createDependencies,
	createDependencyMembers,
	createSettings,
	idxDependencyMembers,
}

// Keys of the settings table. Values are JSON documents.
const (
	settingSkullTypeLayers = "skull_type_layers"
	settingMetadata        = "metadata"
)

// Tables in delete order: members before the rows they reference.
var clearOrder = []string{
	"dependency_members",
	"dependencies",
	"variants",
	"categories",
	"settings",
}
