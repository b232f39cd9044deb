package store

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS subscriptions (
    id                   TEXT PRIMARY KEY,
    user_id              TEXT NOT NULL,
    name                 TEXT NOT NULL,
    price                TEXT NOT NULL,
    currency             TEXT NOT NULL DEFAULT '',
    billing_cycle        TEXT NOT NULL,
    next_billing_date    TEXT NOT NULL DEFAULT '',
    status               TEXT NOT NULL,
    category             TEXT NOT NULL DEFAULT '',
    created_at           TEXT NOT NULL,
    updated_at           TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS budget_settings (
    user_id              TEXT PRIMARY KEY,
    budget_limit         TEXT NOT NULL,
    alerts_enabled       INTEGER NOT NULL DEFAULT 1,
    updated_at           TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS alert_log (
    id                   TEXT PRIMARY KEY,
    user_id              TEXT NOT NULL,
    type                 TEXT NOT NULL,
    day                  TEXT NOT NULL,
    created_at           TEXT NOT NULL,
    UNIQUE (user_id, type, day)
);

CREATE INDEX IF NOT EXISTS idx_subscriptions_user ON subscriptions(user_id);
CREATE INDEX IF NOT EXISTS idx_subscriptions_next ON subscriptions(next_billing_date);
CREATE INDEX IF NOT EXISTS idx_alert_log_created ON alert_log(user_id, type, created_at);
`

const postgresSchema = `
CREATE TABLE IF NOT EXISTS subscriptions (
    id                   TEXT PRIMARY KEY,
    user_id              TEXT NOT NULL,
    name                 TEXT NOT NULL,
    price                NUMERIC NOT NULL,
    currency             TEXT NOT NULL DEFAULT '',
    billing_cycle        TEXT NOT NULL,
    next_billing_date    DATE,
    status               TEXT NOT NULL,
    category             TEXT NOT NULL DEFAULT '',
    created_at           TIMESTAMPTZ NOT NULL,
    updated_at           TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS budget_settings (
    user_id              TEXT PRIMARY KEY,
    budget_limit         NUMERIC NOT NULL,
    alerts_enabled       BOOLEAN NOT NULL DEFAULT TRUE,
    updated_at           TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS alert_log (
    id                   TEXT PRIMARY KEY,
    user_id              TEXT NOT NULL,
    type                 TEXT NOT NULL,
    day                  TEXT NOT NULL,
    created_at           TIMESTAMPTZ NOT NULL,
    UNIQUE (user_id, type, day)
);

CREATE INDEX IF NOT EXISTS idx_subscriptions_user ON subscriptions(user_id);
CREATE INDEX IF NOT EXISTS idx_alert_log_created ON alert_log(user_id, type, created_at);
`
