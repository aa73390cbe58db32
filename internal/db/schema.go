package db

// SchemaSQL contains the database schema initialization SQL.
const SchemaSQL = `
    -- ==========================================================================
    -- SESSION TABLE
    -- ==========================================================================
    DEFINE TABLE IF NOT EXISTS session SCHEMAFULL;
    DEFINE FIELD IF NOT EXISTS code ON session TYPE string;
    DEFINE FIELD IF NOT EXISTS name ON session TYPE string;
    DEFINE FIELD IF NOT EXISTS created_at ON session TYPE datetime DEFAULT time::now();

    DEFINE INDEX IF NOT EXISTS session_code ON session FIELDS code UNIQUE;

    -- ==========================================================================
    -- BILL TABLE
    -- ==========================================================================
    DEFINE TABLE IF NOT EXISTS bill SCHEMAFULL;
    -- bill_number is the natural key, e.g. "HB 123"
    DEFINE FIELD IF NOT EXISTS bill_number ON bill TYPE string;
    DEFINE FIELD IF NOT EXISTS bill_type ON bill TYPE string;
    DEFINE FIELD IF NOT EXISTS number ON bill TYPE int;
    DEFINE FIELD IF NOT EXISTS session_code ON bill TYPE string;
    DEFINE FIELD IF NOT EXISTS description ON bill TYPE string;
    DEFINE FIELD IF NOT EXISTS authors ON bill TYPE array<string>;
    DEFINE FIELD IF NOT EXISTS status ON bill TYPE string;
    DEFINE FIELD IF NOT EXISTS last_action ON bill TYPE string;
    DEFINE FIELD IF NOT EXISTS last_action_date ON bill TYPE option<datetime>;
    DEFINE FIELD IF NOT EXISTS filename ON bill TYPE string;
    DEFINE FIELD IF NOT EXISTS created_at ON bill TYPE datetime DEFAULT time::now();
    DEFINE FIELD IF NOT EXISTS updated_at ON bill TYPE datetime DEFAULT time::now();

    DEFINE INDEX IF NOT EXISTS bill_natural_key ON bill FIELDS bill_number UNIQUE;
    DEFINE INDEX IF NOT EXISTS bill_session ON bill FIELDS session_code;
    DEFINE INDEX IF NOT EXISTS bill_status ON bill FIELDS status;

    -- ==========================================================================
    -- SYNC JOB TABLE
    -- ==========================================================================
    DEFINE TABLE IF NOT EXISTS sync_job SCHEMAFULL;
    DEFINE FIELD IF NOT EXISTS status ON sync_job TYPE string;
    DEFINE FIELD IF NOT EXISTS session_code ON sync_job TYPE string;
    DEFINE FIELD IF NOT EXISTS session_name ON sync_job TYPE string;
    DEFINE FIELD IF NOT EXISTS bill_types ON sync_job TYPE array<string>;
    DEFINE FIELD IF NOT EXISTS completed_types ON sync_job FLEXIBLE TYPE object;
    DEFINE FIELD IF NOT EXISTS cursors ON sync_job FLEXIBLE TYPE object;
    DEFINE FIELD IF NOT EXISTS processed ON sync_job TYPE int DEFAULT 0;
    DEFINE FIELD IF NOT EXISTS created ON sync_job TYPE int DEFAULT 0;
    DEFINE FIELD IF NOT EXISTS updated ON sync_job TYPE int DEFAULT 0;
    DEFINE FIELD IF NOT EXISTS errored ON sync_job TYPE int DEFAULT 0;
    DEFINE FIELD IF NOT EXISTS max_bills ON sync_job TYPE int;
    DEFINE FIELD IF NOT EXISTS batch_delay_ms ON sync_job TYPE int;
    DEFINE FIELD IF NOT EXISTS error ON sync_job TYPE option<string>;
    DEFINE FIELD IF NOT EXISTS started_at ON sync_job TYPE datetime DEFAULT time::now();
    DEFINE FIELD IF NOT EXISTS updated_at ON sync_job TYPE datetime DEFAULT time::now();
    DEFINE FIELD IF NOT EXISTS completed_at ON sync_job TYPE option<datetime>;

    DEFINE INDEX IF NOT EXISTS sync_job_status ON sync_job FIELDS status;

    -- ==========================================================================
    -- SETTING TABLE (key-value fetch configuration)
    -- ==========================================================================
    DEFINE TABLE IF NOT EXISTS setting SCHEMAFULL;
    DEFINE FIELD IF NOT EXISTS value ON setting TYPE string;
    DEFINE FIELD IF NOT EXISTS updated_at ON setting TYPE datetime DEFAULT time::now();
`
