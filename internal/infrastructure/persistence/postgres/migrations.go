// Package postgres implements the PostgreSQL persistence layer for the
// queue manager.
package postgres

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 001: CREATE USERS AND GROUPS
// ══════════════════════════════════════════════════════════════════════════════

const migration001Up = `
-- Migration: Create users and groups tables
-- Version: 001

CREATE TABLE IF NOT EXISTS users (
    id TEXT PRIMARY KEY,
    telegram_id BIGINT NOT NULL UNIQUE,
    full_name VARCHAR(100) NOT NULL,
    username VARCHAR(50) NOT NULL DEFAULT '',
    group_codes TEXT[] NOT NULL DEFAULT '{}',
    average_position DOUBLE PRECISION NOT NULL DEFAULT 0,
    participation_count INTEGER NOT NULL DEFAULT 0,
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    CONSTRAINT valid_participation_count CHECK (participation_count >= 0),
    CONSTRAINT valid_average_position CHECK (average_position >= 0)
);

CREATE INDEX IF NOT EXISTS idx_users_telegram_id ON users(telegram_id);
CREATE INDEX IF NOT EXISTS idx_users_group_codes ON users USING GIN(group_codes);

CREATE TABLE IF NOT EXISTS groups (
    id TEXT PRIMARY KEY,
    code VARCHAR(30) NOT NULL UNIQUE,
    subgroups INTEGER[] NOT NULL DEFAULT '{}',
    event_ids TEXT[] NOT NULL DEFAULT '{}',
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_groups_code ON groups(code);
`

const migration001Down = `
DROP TABLE IF EXISTS groups;
DROP TABLE IF EXISTS users;
`

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 002: CREATE CATEGORIES
// ══════════════════════════════════════════════════════════════════════════════

const migration002Up = `
-- Migration: Create event categories table
-- Version: 002

CREATE TABLE IF NOT EXISTS categories (
    id TEXT PRIMARY KEY,
    subject_name VARCHAR(100) NOT NULL,
    group_code VARCHAR(30) NOT NULL,
    auto_create BOOLEAN NOT NULL DEFAULT FALSE,
    unfinished BIGINT[] NOT NULL DEFAULT '{}',
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    UNIQUE(group_code, subject_name)
);

CREATE INDEX IF NOT EXISTS idx_categories_group_code ON categories(group_code);
CREATE INDEX IF NOT EXISTS idx_categories_auto_create ON categories(auto_create) WHERE auto_create;
`

const migration002Down = `
DROP TABLE IF EXISTS categories;
`

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 003: CREATE EVENTS
// ══════════════════════════════════════════════════════════════════════════════

const migration003Up = `
-- Migration: Create events table
-- Version: 003

CREATE TABLE IF NOT EXISTS events (
    id TEXT PRIMARY KEY,
    category_id TEXT NOT NULL REFERENCES categories(id) ON DELETE CASCADE,
    group_code VARCHAR(30) NOT NULL,
    occurred_on TIMESTAMP WITH TIME ZONE NOT NULL,
    notification_time TIMESTAMP WITH TIME ZONE NOT NULL,
    formation_time TIMESTAMP WITH TIME ZONE NOT NULL,
    deletion_time TIMESTAMP WITH TIME ZONE NOT NULL,
    phase VARCHAR(20) NOT NULL DEFAULT 'created',
    participants BIGINT[] NOT NULL DEFAULT '{}',
    preferences TEXT[] NOT NULL DEFAULT '{}',
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    CONSTRAINT valid_phase CHECK (phase IN ('created', 'notified', 'formed')),
    CONSTRAINT aligned_preferences CHECK (cardinality(participants) = cardinality(preferences))
);

CREATE INDEX IF NOT EXISTS idx_events_category_id ON events(category_id);
CREATE INDEX IF NOT EXISTS idx_events_group_code ON events(group_code);

-- Threshold scans of the lifecycle loop
CREATE INDEX IF NOT EXISTS idx_events_notification_due ON events(notification_time) WHERE phase = 'created';
CREATE INDEX IF NOT EXISTS idx_events_formation_due ON events(formation_time) WHERE phase IN ('created', 'notified');
CREATE INDEX IF NOT EXISTS idx_events_deletion_due ON events(deletion_time);
`

const migration003Down = `
DROP TABLE IF EXISTS events;
`

// GetMigrations returns all embedded migrations.
func GetMigrations() []Migration {
	return []Migration{
		{
			Version: 1,
			Name:    "create_users_and_groups",
			UpSQL:   migration001Up,
			DownSQL: migration001Down,
		},
		{
			Version: 2,
			Name:    "create_categories",
			UpSQL:   migration002Up,
			DownSQL: migration002Down,
		},
		{
			Version: 3,
			Name:    "create_events",
			UpSQL:   migration003Up,
			DownSQL: migration003Down,
		},
	}
}
