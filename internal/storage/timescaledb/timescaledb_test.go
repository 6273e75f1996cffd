package timescaledb

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/pburkhalter/TEKO-S3-Funkthermometer/internal/database"
	"github.com/pburkhalter/TEKO-S3-Funkthermometer/internal/types"
	"go.uber.org/zap/zaptest"
	"gorm.io/driver/postgres"
)

const frame = "000100000010011000001011001101100000"

var columns = []string{"id", "station", "timestamp", "channel", "battery", "temperature", "humidity", "raw"}

func newMockStorage(t *testing.T) (*Storage, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	t.Cleanup(func() { sqlDB.Close() })

	db, err := database.Open(postgres.New(postgres.Config{Conn: sqlDB}))
	if err != nil {
		t.Fatalf("gorm: %v", err)
	}
	return NewWithConn(db, zaptest.NewLogger(t).Sugar()), mock
}

func TestBootstrap(t *testing.T) {
	tests := []struct {
		name       string
		hypertable bool
		statements []string
	}{
		{
			name:       "plain table",
			statements: []string{"CREATE TABLE IF NOT EXISTS measurement", "CREATE INDEX IF NOT EXISTS measurement_station_timestamp_idx"},
		},
		{
			name:       "hypertable",
			hypertable: true,
			statements: []string{
				"CREATE TABLE IF NOT EXISTS measurement",
				"CREATE INDEX IF NOT EXISTS measurement_station_timestamp_idx",
				"CREATE EXTENSION IF NOT EXISTS timescaledb",
				"SELECT create_hypertable('measurement', 'timestamp'",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, mock := newMockStorage(t)
			for _, stmt := range tt.statements {
				mock.ExpectExec(regexp.QuoteMeta(stmt)).WillReturnResult(sqlmock.NewResult(0, 0))
			}

			if err := s.Bootstrap(context.Background(), tt.hypertable); err != nil {
				t.Fatalf("Bootstrap: %v", err)
			}
			if err := mock.ExpectationsWereMet(); err != nil {
				t.Error(err)
			}
		})
	}
}

func TestBootstrapFailure(t *testing.T) {
	s, mock := newMockStorage(t)
	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS measurement")).
		WillReturnError(errors.New("permission denied"))

	if err := s.Bootstrap(context.Background(), false); err == nil {
		t.Fatal("expected an error")
	}
}

func TestStoreMeasurement(t *testing.T) {
	s, mock := newMockStorage(t)

	m := types.Measurement{
		ID:          "m-1",
		Station:     types.StationT1,
		CapturedAt:  time.Date(2024, 11, 3, 7, 30, 0, 0, time.UTC),
		Channel:     1,
		Battery:     types.BatteryOK,
		Temperature: 21.5,
		Humidity:    45,
		Raw:         frame,
		Support:     4,
	}

	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO "measurement"`)).
		WithArgs("m-1", "T1", sqlmock.AnyArg(), sqlmock.AnyArg(), "OK", 21.5, 45.0, frame).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := s.StoreMeasurement(context.Background(), m); err != nil {
		t.Fatalf("StoreMeasurement: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestStoreMeasurementError(t *testing.T) {
	s, mock := newMockStorage(t)
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO "measurement"`)).
		WillReturnError(errors.New("connection reset by peer"))

	err := s.StoreMeasurement(context.Background(), types.Measurement{ID: "m-2", Station: types.StationT2, Battery: types.BatteryLow})
	if err == nil {
		t.Fatal("expected an error")
	}
}

func TestRecent(t *testing.T) {
	s, mock := newMockStorage(t)

	newer := time.Date(2024, 11, 3, 7, 31, 0, 0, time.UTC)
	older := newer.Add(-time.Minute)
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "measurement" ORDER BY timestamp DESC LIMIT`)).
		WillReturnRows(sqlmock.NewRows(columns).
			AddRow("m-2", "T2", newer, 2, "Low", 18.0, 60.0, frame).
			AddRow("m-1", "T1", older, 1, "OK", 21.5, 45.0, frame))

	got, err := s.Recent(context.Background(), 2)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d measurements, want 2", len(got))
	}
	if got[0].ID != "m-2" || got[0].Station != types.StationT2 || got[0].Battery != types.BatteryLow || got[0].Channel != 2 {
		t.Errorf("first = %+v", got[0])
	}
	if !got[1].CapturedAt.Equal(older) || got[1].Temperature != 21.5 {
		t.Errorf("second = %+v", got[1])
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestRecentByStation(t *testing.T) {
	s, mock := newMockStorage(t)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "measurement" WHERE station = $1 ORDER BY timestamp DESC LIMIT`)).
		WithArgs("T2", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows(columns))

	got, err := s.RecentByStation(context.Background(), types.StationT2, 10)
	if err != nil {
		t.Fatalf("RecentByStation: %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Errorf("got %#v, want an empty non-nil slice", got)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestCheckHealth(t *testing.T) {
	s, mock := newMockStorage(t)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1")).
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}).AddRow(1))

	if err := s.CheckHealth(context.Background()); err != nil {
		t.Errorf("CheckHealth: %v", err)
	}

	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1")).WillReturnError(errors.New("too many connections"))
	if err := s.CheckHealth(context.Background()); err == nil {
		t.Error("expected an error")
	}
}
