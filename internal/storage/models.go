package storage

// Schema owned by the archive. Created out of band; kept here so the
// queries below have a single reference point.
//
//	CREATE TABLE usage_records (
//	    id           BIGSERIAL PRIMARY KEY,
//	    customer_id  TEXT        NOT NULL,
//	    usage_type   TEXT        NOT NULL,
//	    usage_amount NUMERIC     NOT NULL CHECK (usage_amount >= 0),
//	    usage_date   TIMESTAMPTZ NOT NULL,
//	    created_at   TIMESTAMPTZ NOT NULL DEFAULT now()
//	);
//
//	CREATE TABLE alert_events (
//	    id         TEXT PRIMARY KEY,
//	    rule_id    TEXT        NOT NULL,
//	    title      TEXT        NOT NULL,
//	    message    TEXT        NOT NULL,
//	    severity   TEXT        NOT NULL,
//	    kind       TEXT        NOT NULL,
//	    created_at TIMESTAMPTZ NOT NULL
//	);
