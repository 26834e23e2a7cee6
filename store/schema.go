package store

// schemaSQL is the DDL for the base schema. Later changes go through
// migrations.
const schemaSQL = `
-- One row per uploaded delivery note
CREATE TABLE IF NOT EXISTS orders (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    original_filename TEXT NOT NULL,
    stored_path TEXT NOT NULL,
    content_hash TEXT NOT NULL DEFAULT '',
    parse_method TEXT NOT NULL DEFAULT '',
    status TEXT NOT NULL DEFAULT 'NEW',

    -- Dispatcher-editable fields, seeded from the parsed note
    client_name TEXT DEFAULT '',
    phone TEXT DEFAULT '',
    address TEXT DEFAULT '',
    delivery_date TEXT DEFAULT '',
    delivery_window TEXT DEFAULT '',
    notes TEXT DEFAULT '',

    -- Parsed fields
    order_ref TEXT DEFAULT '',
    recipient_name TEXT DEFAULT '',
    ship_address TEXT DEFAULT '',
    service_tag TEXT DEFAULT '',
    doc_author TEXT DEFAULT '',
    doc_email TEXT DEFAULT '',
    doc_phone TEXT DEFAULT '',
    items_compact TEXT DEFAULT '',
    items_json TEXT DEFAULT '[]',

    created_at TEXT NOT NULL,
    updated_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_orders_content_hash ON orders(content_hash);
`
