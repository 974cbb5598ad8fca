package postgres

// Documents are stored as JSONB with the columns the lifecycle queries filter
// on lifted out. The change_log table is the transactional outbox behind the
// change feed.
const schema = `
CREATE TABLE IF NOT EXISTS players (
	id  UUID PRIMARY KEY,
	doc JSONB NOT NULL
);

CREATE TABLE IF NOT EXISTS clubs (
	id  UUID PRIMARY KEY,
	doc JSONB NOT NULL
);

CREATE TABLE IF NOT EXISTS contracts (
	id        UUID PRIMARY KEY,
	player_id UUID NOT NULL,
	club_id   UUID NOT NULL,
	status    TEXT NOT NULL,
	end_date  TIMESTAMPTZ NOT NULL,
	doc       JSONB NOT NULL
);
CREATE INDEX IF NOT EXISTS contracts_player_idx ON contracts (player_id);
CREATE INDEX IF NOT EXISTS contracts_club_status_idx ON contracts (club_id, status);
CREATE INDEX IF NOT EXISTS contracts_status_end_idx ON contracts (status, end_date);

CREATE TABLE IF NOT EXISTS transfers (
	id         UUID PRIMARY KEY,
	player_id  UUID NOT NULL,
	created_at TIMESTAMPTZ NOT NULL,
	doc        JSONB NOT NULL
);
CREATE INDEX IF NOT EXISTS transfers_player_idx ON transfers (player_id, created_at DESC);

CREATE TABLE IF NOT EXISTS change_log (
	id          BIGSERIAL PRIMARY KEY,
	entity      TEXT NOT NULL,
	op          TEXT NOT NULL,
	entity_id   TEXT NOT NULL,
	doc         JSONB NOT NULL,
	source_time TIMESTAMPTZ NOT NULL
);
`
