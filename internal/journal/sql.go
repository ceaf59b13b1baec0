package journal

import (
	_ "embed"
)

const (
	insertRunSQL = `
INSERT INTO runs (
                  started_at,
                  location,
                  input_path,
                  output_path,
                  interval_seconds,
                  atmosphere)
VALUES (?, ?, ?, ?, ?, ?)`

	insertMeasurementSQL = `
    INSERT INTO measurements (
        run_id,
        measurement_id,
        path,
        start_time,
        stop_time,
        calibration,
        wavelength,
        size_bytes
    )
    VALUES `

	selectRunsSQL = `
SELECT
    id,
    started_at,
    location,
    input_path,
    output_path,
    interval_seconds,
    atmosphere
FROM runs
ORDER BY started_at DESC`

	selectRunMeasurementsSQL = `
SELECT
    measurement_id,
    path,
    start_time,
    stop_time,
    calibration,
    wavelength,
    size_bytes
FROM measurements
WHERE
    run_id = ?
ORDER BY start_time`
)

//go:embed schema.sql
var schemaSQL string
