package postgres

// Schema is the DDL the store expects. Applied out of band in production;
// tests create an equivalent schema in-memory.
const Schema = `
CREATE TABLE IF NOT EXISTS accounts (
	id UUID PRIMARY KEY,
	email TEXT NOT NULL UNIQUE,
	username TEXT NOT NULL,
	password_hash TEXT NOT NULL,
	role TEXT NOT NULL,
	is_active BOOLEAN NOT NULL DEFAULT TRUE,
	is_banned BOOLEAN NOT NULL DEFAULT FALSE,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS refresh_tokens (
	token TEXT PRIMARY KEY,
	user_id UUID NOT NULL REFERENCES accounts(id),
	expires_at TIMESTAMPTZ NOT NULL,
	is_revoked BOOLEAN NOT NULL DEFAULT FALSE,
	device_info TEXT,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_refresh_tokens_user ON refresh_tokens(user_id);

CREATE TABLE IF NOT EXISTS characters (
	id UUID PRIMARY KEY,
	name TEXT NOT NULL,
	description TEXT,
	level INTEGER NOT NULL DEFAULT 1,
	visibility TEXT NOT NULL DEFAULT 'PUBLIC',
	owner_id UUID REFERENCES accounts(id),
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_characters_owner ON characters(owner_id);
CREATE INDEX IF NOT EXISTS idx_characters_visibility ON characters(visibility);
`
