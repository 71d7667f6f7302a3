package datastore

import (
	"context"
	"fmt"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
)

// InfluxDBStore persists point-in-time machine snapshots as a time
// series, purely additive telemetry history never consulted for core
// correctness.
type InfluxDBStore struct {
	client   influxdb2.Client
	org      string
	bucket   string
	writeAPI api.WriteAPIBlocking
	queryAPI api.QueryAPI
}

// NewInfluxDBStore connects to an InfluxDB instance and verifies
// reachability.
func NewInfluxDBStore(url, token, org, bucket string) (*InfluxDBStore, error) {
	client := influxdb2.NewClient(url, token)

	store := &InfluxDBStore{
		client:   client,
		org:      org,
		bucket:   bucket,
		writeAPI: client.WriteAPIBlocking(org, bucket),
		queryAPI: client.QueryAPI(org),
	}

	if _, err := client.Ping(context.Background()); err != nil {
		client.Close()
		return nil, fmt.Errorf("datastore: connect to influxdb: %w", err)
	}
	return store, nil
}

// SaveSnapshot writes one machine snapshot (and its location, if
// present) as time-series points tagged by session ID.
func (s *InfluxDBStore) SaveSnapshot(sessionID string, snap *Snapshot) error {
	point := influxdb2.NewPoint(
		"machine_snapshot",
		map[string]string{"session": sessionID},
		map[string]interface{}{
			"engine_rpm": snap.EngineRPM,
			"governor":   snap.Governor,
			"locked":     snap.Locked,
		},
		snap.Timestamp,
	)
	if err := s.writeAPI.WritePoint(context.Background(), point); err != nil {
		return fmt.Errorf("datastore: write snapshot: %w", err)
	}

	if snap.Location != nil {
		geoPoint := influxdb2.NewPoint(
			"machine_location",
			map[string]string{"session": sessionID},
			map[string]interface{}{
				"latitude":  snap.Location.Latitude,
				"longitude": snap.Location.Longitude,
				"altitude":  snap.Location.Altitude,
			},
			snap.Location.Timestamp,
		)
		if err := s.writeAPI.WritePoint(context.Background(), geoPoint); err != nil {
			return fmt.Errorf("datastore: write location: %w", err)
		}
	}
	return nil
}

// GetSnapshots queries every snapshot for sessionID within [start,end],
// merging in location points sharing the same timestamp.
func (s *InfluxDBStore) GetSnapshots(sessionID string, start, end time.Time) ([]*Snapshot, error) {
	query := fmt.Sprintf(`
		from(bucket:"%s")
			|> range(start: %s, stop: %s)
			|> filter(fn: (r) => r["_measurement"] == "machine_snapshot" and r["session"] == "%s")
			|> pivot(rowKey:["_time"], columnKey: ["_field"], valueColumn: "_value")
	`, s.bucket, start.Format(time.RFC3339), end.Format(time.RFC3339), sessionID)

	result, err := s.queryAPI.Query(context.Background(), query)
	if err != nil {
		return nil, fmt.Errorf("datastore: query snapshots: %w", err)
	}
	defer result.Close()

	var snapshots []*Snapshot
	for result.Next() {
		record := result.Record()
		snap := &Snapshot{
			Timestamp: record.Time(),
			EngineRPM: toUint16(record.ValueByKey("engine_rpm")),
			Governor:  toString(record.ValueByKey("governor")),
			Locked:    toBool(record.ValueByKey("locked")),
		}
		snapshots = append(snapshots, snap)
	}

	locQuery := fmt.Sprintf(`
		from(bucket:"%s")
			|> range(start: %s, stop: %s)
			|> filter(fn: (r) => r["_measurement"] == "machine_location" and r["session"] == "%s")
			|> pivot(rowKey:["_time"], columnKey: ["_field"], valueColumn: "_value")
	`, s.bucket, start.Format(time.RFC3339), end.Format(time.RFC3339), sessionID)

	locResult, err := s.queryAPI.Query(context.Background(), locQuery)
	if err != nil {
		return nil, fmt.Errorf("datastore: query locations: %w", err)
	}
	defer locResult.Close()

	locations := make(map[time.Time]*Location)
	for locResult.Next() {
		record := locResult.Record()
		locations[record.Time()] = &Location{
			Timestamp: record.Time(),
			Latitude:  toFloat64(record.ValueByKey("latitude")),
			Longitude: toFloat64(record.ValueByKey("longitude")),
			Altitude:  toFloat64(record.ValueByKey("altitude")),
		}
	}
	for _, snap := range snapshots {
		if loc, ok := locations[snap.Timestamp]; ok {
			snap.Location = loc
		}
	}

	return snapshots, nil
}

// GetLatestSnapshot returns the most recent snapshot within the last
// hour for sessionID.
func (s *InfluxDBStore) GetLatestSnapshot(sessionID string) (*Snapshot, error) {
	query := fmt.Sprintf(`
		from(bucket:"%s")
			|> range(start: -1h)
			|> filter(fn: (r) => r["_measurement"] == "machine_snapshot" and r["session"] == "%s")
			|> last()
			|> pivot(rowKey:["_time"], columnKey: ["_field"], valueColumn: "_value")
	`, s.bucket, sessionID)

	result, err := s.queryAPI.Query(context.Background(), query)
	if err != nil {
		return nil, fmt.Errorf("datastore: query latest snapshot: %w", err)
	}
	defer result.Close()

	if !result.Next() {
		return nil, fmt.Errorf("datastore: no snapshots found for session %s", sessionID)
	}

	record := result.Record()
	return &Snapshot{
		Timestamp: record.Time(),
		EngineRPM: toUint16(record.ValueByKey("engine_rpm")),
		Governor:  toString(record.ValueByKey("governor")),
		Locked:    toBool(record.ValueByKey("locked")),
	}, nil
}

// Close releases the InfluxDB client.
func (s *InfluxDBStore) Close() error {
	s.client.Close()
	return nil
}

func toFloat64(v interface{}) float64 {
	f, _ := v.(float64)
	return f
}

func toUint16(v interface{}) uint16 {
	switch n := v.(type) {
	case int64:
		return uint16(n)
	case float64:
		return uint16(n)
	default:
		return 0
	}
}

func toString(v interface{}) string {
	s, _ := v.(string)
	return s
}

func toBool(v interface{}) bool {
	b, _ := v.(bool)
	return b
}
