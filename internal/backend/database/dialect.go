package database

// dialect captures the statements that differ between the supported engines.
type dialect struct {
	name   string
	driver string
	// schema statements are idempotent and executed in order
	schema []string
	// insertIgnore prefixes inserts whose unique-key conflicts are silently skipped
	insertIgnore string
	// likeEscape is appended to LIKE predicates that escape wildcards with a backslash
	likeEscape string
}

var sqliteDialect = dialect{
	name:   "sqlite",
	driver: "sqlite",
	schema: []string{
		`PRAGMA foreign_keys = ON`,
		`CREATE TABLE IF NOT EXISTS users (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			username TEXT NOT NULL UNIQUE,
			email TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL,
			created_at INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS images (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			original_filename TEXT NOT NULL,
			storage_path TEXT NOT NULL UNIQUE,
			thumbnail_path TEXT NOT NULL UNIQUE,
			mime_type TEXT NOT NULL DEFAULT '',
			size INTEGER NOT NULL DEFAULT 0,
			resolution TEXT NOT NULL DEFAULT '',
			exif_data TEXT NOT NULL DEFAULT '{}',
			uploaded_at INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_images_user_uploaded ON images (user_id, uploaded_at)`,
		`CREATE TABLE IF NOT EXISTS tags (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL UNIQUE
		)`,
		`CREATE TABLE IF NOT EXISTS image_tags (
			image_id INTEGER NOT NULL REFERENCES images(id) ON DELETE CASCADE,
			tag_id INTEGER NOT NULL REFERENCES tags(id) ON DELETE CASCADE,
			PRIMARY KEY (image_id, tag_id)
		)`,
	},
	insertIgnore: "INSERT OR IGNORE",
	likeEscape:   ` ESCAPE '\'`,
}

// Tag names use a binary collation so lookups stay case-sensitive.
var mysqlDialect = dialect{
	name:   "mysql",
	driver: "mysql",
	schema: []string{
		`CREATE TABLE IF NOT EXISTS users (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			username VARCHAR(50) NOT NULL UNIQUE,
			email VARCHAR(100) NOT NULL UNIQUE,
			password_hash VARCHAR(255) NOT NULL,
			created_at BIGINT NOT NULL
		) DEFAULT CHARSET = utf8mb4`,
		`CREATE TABLE IF NOT EXISTS images (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			user_id BIGINT NOT NULL,
			original_filename VARCHAR(255) NOT NULL,
			storage_path VARCHAR(512) NOT NULL UNIQUE,
			thumbnail_path VARCHAR(512) NOT NULL UNIQUE,
			mime_type VARCHAR(50) NOT NULL DEFAULT '',
			size BIGINT NOT NULL DEFAULT 0,
			resolution VARCHAR(20) NOT NULL DEFAULT '',
			exif_data LONGTEXT NOT NULL,
			uploaded_at BIGINT NOT NULL,
			INDEX idx_images_user_uploaded (user_id, uploaded_at),
			FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
		) DEFAULT CHARSET = utf8mb4`,
		`CREATE TABLE IF NOT EXISTS tags (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			name VARCHAR(50) COLLATE utf8mb4_bin NOT NULL UNIQUE
		) DEFAULT CHARSET = utf8mb4`,
		`CREATE TABLE IF NOT EXISTS image_tags (
			image_id BIGINT NOT NULL,
			tag_id BIGINT NOT NULL,
			PRIMARY KEY (image_id, tag_id),
			FOREIGN KEY (image_id) REFERENCES images(id) ON DELETE CASCADE,
			FOREIGN KEY (tag_id) REFERENCES tags(id) ON DELETE CASCADE
		) DEFAULT CHARSET = utf8mb4`,
	},
	insertIgnore: "INSERT IGNORE",
	// backslash is already MySQL's default LIKE escape character
	likeEscape: "",
}
