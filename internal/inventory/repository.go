package inventory

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Repository defines the interface for inventory persistence operations.
// This abstraction allows for different implementations (SQLite, mock, etc.)
// and enables unit testing without database dependencies.
type Repository interface {
	// GetDevice retrieves a device by its unique identifier.
	// Returns ErrDeviceNotFound if the device does not exist.
	GetDevice(ctx context.Context, id string) (*RawDevice, error)

	// ListDevices retrieves all devices.
	ListDevices(ctx context.Context) ([]RawDevice, error)

	// UpsertDevice inserts a device or replaces an existing record with
	// the same id. Discovery announcements are idempotent.
	UpsertDevice(ctx context.Context, device *RawDevice) error

	// DeleteDevice removes a device by id.
	// Returns ErrDeviceNotFound if the device does not exist.
	DeleteDevice(ctx context.Context, id string) error

	// GetService retrieves a service by its unique identifier.
	// Returns ErrServiceNotFound if the service does not exist.
	GetService(ctx context.Context, id string) (*RawService, error)

	// ListServices retrieves all services.
	ListServices(ctx context.Context) ([]RawService, error)

	// UpsertService inserts a service or replaces an existing record.
	UpsertService(ctx context.Context, service *RawService) error

	// DeleteService removes a service by id.
	// Returns ErrServiceNotFound if the service does not exist.
	DeleteService(ctx context.Context, id string) error
}

// SQLiteRepository implements Repository using SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new SQLite-backed repository.
// The db parameter should be an open SQLite connection.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// GetDevice retrieves a device by its unique identifier.
func (r *SQLiteRepository) GetDevice(ctx context.Context, id string) (*RawDevice, error) {
	query := `
		SELECT id, name, manufacturer, model, room, reachable,
			endpoints, metadata, last_seen, created_at, updated_at
		FROM devices
		WHERE id = ?`

	device, err := scanDevice(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrDeviceNotFound
		}
		return nil, fmt.Errorf("querying device by id: %w", err)
	}
	return device, nil
}

// ListDevices retrieves all devices.
func (r *SQLiteRepository) ListDevices(ctx context.Context) ([]RawDevice, error) {
	query := `
		SELECT id, name, manufacturer, model, room, reachable,
			endpoints, metadata, last_seen, created_at, updated_at
		FROM devices
		ORDER BY name`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("querying devices: %w", err)
	}
	defer rows.Close()

	var devices []RawDevice
	for rows.Next() {
		device, err := scanDevice(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning device: %w", err)
		}
		devices = append(devices, *device)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating devices: %w", err)
	}
	return devices, nil
}

// UpsertDevice inserts or replaces a device record.
func (r *SQLiteRepository) UpsertDevice(ctx context.Context, device *RawDevice) error {
	endpointsJSON, err := json.Marshal(device.Endpoints)
	if err != nil {
		return fmt.Errorf("marshalling endpoints: %w", err)
	}
	metadataJSON, err := json.Marshal(device.Metadata)
	if err != nil {
		return fmt.Errorf("marshalling metadata: %w", err)
	}

	now := time.Now().UTC()
	if device.CreatedAt.IsZero() {
		device.CreatedAt = now
	}
	device.UpdatedAt = now

	query := `
		INSERT INTO devices (
			id, name, manufacturer, model, room, reachable,
			endpoints, metadata, last_seen, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			manufacturer = excluded.manufacturer,
			model = excluded.model,
			room = excluded.room,
			reachable = excluded.reachable,
			endpoints = excluded.endpoints,
			metadata = excluded.metadata,
			last_seen = excluded.last_seen,
			updated_at = excluded.updated_at`

	_, err = r.db.ExecContext(ctx, query,
		device.ID,
		device.Name,
		nullableString(device.Manufacturer),
		nullableString(device.Model),
		nullableString(device.Room),
		boolToInt(device.Reachable),
		string(endpointsJSON),
		string(metadataJSON),
		nullableTime(device.LastSeen),
		device.CreatedAt.Format(time.RFC3339),
		device.UpdatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("upserting device: %w", err)
	}
	return nil
}

// DeleteDevice removes a device by id.
func (r *SQLiteRepository) DeleteDevice(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM devices WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting device: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrDeviceNotFound
	}
	return nil
}

// GetService retrieves a service by its unique identifier.
func (r *SQLiteRepository) GetService(ctx context.Context, id string) (*RawService, error) {
	query := `
		SELECT id, name, service_type, available, metadata,
			last_seen, created_at, updated_at
		FROM services
		WHERE id = ?`

	service, err := scanService(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrServiceNotFound
		}
		return nil, fmt.Errorf("querying service by id: %w", err)
	}
	return service, nil
}

// ListServices retrieves all services.
func (r *SQLiteRepository) ListServices(ctx context.Context) ([]RawService, error) {
	query := `
		SELECT id, name, service_type, available, metadata,
			last_seen, created_at, updated_at
		FROM services
		ORDER BY name`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("querying services: %w", err)
	}
	defer rows.Close()

	var services []RawService
	for rows.Next() {
		service, err := scanService(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning service: %w", err)
		}
		services = append(services, *service)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating services: %w", err)
	}
	return services, nil
}

// UpsertService inserts or replaces a service record.
func (r *SQLiteRepository) UpsertService(ctx context.Context, service *RawService) error {
	metadataJSON, err := json.Marshal(service.Metadata)
	if err != nil {
		return fmt.Errorf("marshalling metadata: %w", err)
	}

	now := time.Now().UTC()
	if service.CreatedAt.IsZero() {
		service.CreatedAt = now
	}
	service.UpdatedAt = now

	query := `
		INSERT INTO services (
			id, name, service_type, available, metadata,
			last_seen, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			service_type = excluded.service_type,
			available = excluded.available,
			metadata = excluded.metadata,
			last_seen = excluded.last_seen,
			updated_at = excluded.updated_at`

	_, err = r.db.ExecContext(ctx, query,
		service.ID,
		service.Name,
		service.ServiceType,
		boolToInt(service.Available),
		string(metadataJSON),
		nullableTime(service.LastSeen),
		service.CreatedAt.Format(time.RFC3339),
		service.UpdatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("upserting service: %w", err)
	}
	return nil
}

// DeleteService removes a service by id.
func (r *SQLiteRepository) DeleteService(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM services WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting service: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrServiceNotFound
	}
	return nil
}

// rowScanner is an interface that sql.Row and sql.Rows both implement.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanDevice scans a row or rows result into a RawDevice.
func scanDevice(scanner rowScanner) (*RawDevice, error) {
	var d RawDevice
	var manufacturer, model, room sql.NullString
	var endpointsJSON, metadataJSON sql.NullString
	var lastSeen sql.NullString
	var reachable int
	var createdAt, updatedAt string

	err := scanner.Scan(
		&d.ID,
		&d.Name,
		&manufacturer,
		&model,
		&room,
		&reachable,
		&endpointsJSON,
		&metadataJSON,
		&lastSeen,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	d.Manufacturer = manufacturer.String
	d.Model = model.String
	d.Room = room.String
	d.Reachable = reachable != 0

	if lastSeen.Valid {
		if t, err := time.Parse(time.RFC3339, lastSeen.String); err == nil {
			d.LastSeen = t
		}
	}

	var parseErr error
	d.CreatedAt, parseErr = time.Parse(time.RFC3339, createdAt)
	if parseErr != nil {
		return nil, fmt.Errorf("parsing created_at: %w", parseErr)
	}
	d.UpdatedAt, parseErr = time.Parse(time.RFC3339, updatedAt)
	if parseErr != nil {
		return nil, fmt.Errorf("parsing updated_at: %w", parseErr)
	}

	if endpointsJSON.Valid && endpointsJSON.String != "" {
		if err := json.Unmarshal([]byte(endpointsJSON.String), &d.Endpoints); err != nil {
			return nil, fmt.Errorf("unmarshalling endpoints: %w", err)
		}
	}
	if metadataJSON.Valid && metadataJSON.String != "" {
		if err := json.Unmarshal([]byte(metadataJSON.String), &d.Metadata); err != nil {
			return nil, fmt.Errorf("unmarshalling metadata: %w", err)
		}
	}

	return &d, nil
}

// scanService scans a row or rows result into a RawService.
func scanService(scanner rowScanner) (*RawService, error) {
	var s RawService
	var metadataJSON, lastSeen sql.NullString
	var available int
	var createdAt, updatedAt string

	err := scanner.Scan(
		&s.ID,
		&s.Name,
		&s.ServiceType,
		&available,
		&metadataJSON,
		&lastSeen,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	s.Available = available != 0

	if lastSeen.Valid {
		if t, err := time.Parse(time.RFC3339, lastSeen.String); err == nil {
			s.LastSeen = t
		}
	}

	var parseErr error
	s.CreatedAt, parseErr = time.Parse(time.RFC3339, createdAt)
	if parseErr != nil {
		return nil, fmt.Errorf("parsing created_at: %w", parseErr)
	}
	s.UpdatedAt, parseErr = time.Parse(time.RFC3339, updatedAt)
	if parseErr != nil {
		return nil, fmt.Errorf("parsing updated_at: %w", parseErr)
	}

	if metadataJSON.Valid && metadataJSON.String != "" {
		if err := json.Unmarshal([]byte(metadataJSON.String), &s.Metadata); err != nil {
			return nil, fmt.Errorf("unmarshalling metadata: %w", err)
		}
	}

	return &s, nil
}

// nullableString returns a sql.NullString for optional strings.
func nullableString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

// nullableTime returns a sql.NullString for optional times (as RFC3339 strings).
func nullableTime(t time.Time) sql.NullString {
	if t.IsZero() {
		return sql.NullString{}
	}
	return sql.NullString{String: t.UTC().Format(time.RFC3339), Valid: true}
}

// boolToInt converts a boolean to 0/1 for SQLite storage.
func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
