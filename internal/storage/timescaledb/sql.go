package timescaledb

const createTableSQL = `
CREATE TABLE IF NOT EXISTS measurement (
    id text NOT NULL,
    station text NOT NULL,
    timestamp timestamp WITH TIME ZONE NOT NULL,
    channel smallint NOT NULL,
    battery text NOT NULL,
    temperature double precision NOT NULL,
    humidity double precision NOT NULL,
    raw char(36) NOT NULL,
    PRIMARY KEY (id, timestamp)
);`

const createStationIndexSQL = `
CREATE INDEX IF NOT EXISTS measurement_station_timestamp_idx
    ON measurement (station, timestamp DESC);`

const createExtensionSQL = `CREATE EXTENSION IF NOT EXISTS timescaledb;`

const createHypertableSQL = `SELECT create_hypertable('measurement', 'timestamp', if_not_exists => TRUE, migrate_data => TRUE);`
