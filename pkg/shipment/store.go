package shipment

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/marcodd23/go-export-ledger/pkg/dbx"
	"github.com/marcodd23/go-export-ledger/pkg/dbx/sqldb"
	"github.com/marcodd23/go-export-ledger/pkg/logx"
	"github.com/marcodd23/go-export-ledger/pkg/validator"
)

// ErrNotFound is returned when the addressed row does not exist.
var ErrNotFound = errors.New("record not found")

const deliveryColumns = "id, exportation_id, carrier_name, tracking_number, delivery_address, delivery_date, " +
	"status, notes, shipping_method, shipping_cost, shipping_currency"

// Store reads and writes the export ledger through the managed connection.
//
// Writes go through the transaction executor and follow its offline policy: while the
// manager is offline they are skipped, logged, and reported as successful. Reads need
// a live connection and return dbx.ErrOffline otherwise.
type Store struct {
	mgr       dbx.ConnectionManager
	executor  dbx.TransactionExecutor
	dialect   dbx.Dialect
	validator *validator.Validator
}

// NewStore creates a Store on top of the connection manager.
func NewStore(mgr dbx.ConnectionManager, dialect dbx.Dialect) *Store {
	return &Store{
		mgr:       mgr,
		executor:  sqldb.NewTxExecutor(mgr),
		dialect:   dialect,
		validator: validator.NewValidator(),
	}
}

// EnsureSchema creates the ledger tables if they are missing.
func (s *Store) EnsureSchema(ctx context.Context) error {
	return s.write(ctx, "ensure schema", dbx.OperationFunc(func(ctx context.Context, q dbx.Querier) error {
		return createSchema(ctx, q, s.dialect)
	}))
}

// CreateExportation stores a new exportation. A missing ExportationID is generated.
func (s *Store) CreateExportation(ctx context.Context, exp *Exportation) error {
	if err := s.prepareExportation(exp); err != nil {
		return err
	}

	var id int64
	if err := s.write(ctx, "create exportation", s.insertOp(tableExportations, exp, &id)); err != nil {
		return err
	}

	exp.ID = id

	return nil
}

// CreateExportationWithDelivery stores an exportation and its delivery in one transaction.
// Either both rows are written or none is.
// IDs and HasDelivery are only set on the arguments once the transaction is committed.
func (s *Store) CreateExportationWithDelivery(ctx context.Context, exp *Exportation, delivery *Delivery) (err error) {
	hadDelivery := exp.HasDelivery
	defer func() {
		if err != nil {
			exp.HasDelivery = hadDelivery
		}
	}()

	exp.HasDelivery = true
	if err := s.prepareExportation(exp); err != nil {
		return err
	}

	delivery.ExportationID = exp.ExportationID
	if err := s.prepareDelivery(delivery); err != nil {
		return err
	}

	var expID, deliveryID int64

	err = s.write(ctx, "create exportation with delivery",
		s.insertOp(tableExportations, exp, &expID),
		s.insertOp(tableDeliveries, delivery, &deliveryID),
	)
	if err != nil {
		return err
	}

	exp.ID = expID
	delivery.ID = deliveryID

	return nil
}

// InsertDelivery stores a new delivery and sets its ID.
func (s *Store) InsertDelivery(ctx context.Context, delivery *Delivery) error {
	if err := s.prepareDelivery(delivery); err != nil {
		return err
	}

	var id int64
	if err := s.write(ctx, "insert delivery", s.insertOp(tableDeliveries, delivery, &id)); err != nil {
		return err
	}

	delivery.ID = id

	return nil
}

// UpdateDelivery overwrites every column of the delivery with the given ID.
func (s *Store) UpdateDelivery(ctx context.Context, delivery *Delivery) error {
	if err := s.prepareDelivery(delivery); err != nil {
		return err
	}

	columns, err := dbx.DeriveColumnNamesFromTags(delivery, "db")
	if err != nil {
		return err
	}

	assignments := make([]string, 0, len(columns))
	for i, col := range columns {
		assignments = append(assignments, fmt.Sprintf("%s = %s", col, s.dialect.Placeholder(i+1)))
	}

	query := fmt.Sprintf("UPDATE %s SET %s, updated_at = CURRENT_TIMESTAMP WHERE id = %s",
		tableDeliveries, strings.Join(assignments, ", "), s.dialect.Placeholder(len(columns)+1))
	args := append(delivery.ToRow(), delivery.ID)

	return s.write(ctx, "update delivery", dbx.OperationFunc(func(ctx context.Context, q dbx.Querier) error {
		return execOne(ctx, q, query, args...)
	}))
}

// DeleteDelivery removes the delivery with the given ID.
func (s *Store) DeleteDelivery(ctx context.Context, id int64) error {
	query := fmt.Sprintf("DELETE FROM %s WHERE id = %s", tableDeliveries, s.dialect.Placeholder(1))

	return s.write(ctx, "delete delivery", dbx.OperationFunc(func(ctx context.Context, q dbx.Querier) error {
		return execOne(ctx, q, query, id)
	}))
}

// GetDelivery returns the delivery with the given ID, or ErrNotFound.
func (s *Store) GetDelivery(ctx context.Context, id int64) (*Delivery, error) {
	query := fmt.Sprintf("SELECT %s FROM %s WHERE id = %s", deliveryColumns, tableDeliveries, s.dialect.Placeholder(1))

	deliveries, err := sqldb.QueryAndScan(ctx, s.mgr, scanDelivery, query, id)
	if err != nil {
		return nil, err
	}

	if len(deliveries) == 0 {
		return nil, errors.Wrapf(ErrNotFound, "delivery %d", id)
	}

	return &deliveries[0], nil
}

// ListDeliveries returns all deliveries ordered by ID.
func (s *Store) ListDeliveries(ctx context.Context) ([]Delivery, error) {
	query := fmt.Sprintf("SELECT %s FROM %s ORDER BY id ASC", deliveryColumns, tableDeliveries)

	return sqldb.QueryAndScan(ctx, s.mgr, scanDelivery, query)
}

// write runs the operations in one transaction. A transaction skipped in offline mode
// counts as success.
func (s *Store) write(ctx context.Context, action string, ops ...dbx.Operation) error {
	err := s.executor.Run(ctx, ops...)
	if errors.Is(err, dbx.ErrTransactionSkipped) {
		logx.GetLogger().LogInfo(ctx, fmt.Sprintf("Offline mode - %s not persisted", action))
		return nil
	}

	return err
}

func (s *Store) prepareExportation(exp *Exportation) error {
	exp.ExportationID = NormalizeExportID(exp.ExportationID)
	if exp.ExportationID == "" {
		exp.ExportationID = strings.ToUpper(uuid.NewString())
	}

	if exp.Status == "" {
		exp.Status = StatusPending
	}

	if exp.Currency == "" {
		exp.Currency = "USD"
	}

	return s.validator.Validate(exp)
}

func (s *Store) prepareDelivery(delivery *Delivery) error {
	delivery.normalize()

	return s.validator.Validate(delivery)
}

// insertOp inserts the entity and stores its generated key in id.
func (s *Store) insertOp(table string, entity dbx.RowConvertibleEntity, id *int64) dbx.Operation {
	return dbx.OperationFunc(func(ctx context.Context, q dbx.Querier) error {
		generated, err := s.insert(ctx, q, table, entity)
		if err != nil {
			return err
		}

		*id = generated

		return nil
	})
}

// insert writes the entity and returns its generated key.
func (s *Store) insert(ctx context.Context, q dbx.Querier, table string, entity dbx.RowConvertibleEntity) (int64, error) {
	columns, err := dbx.DeriveColumnNamesFromTags(entity, "db")
	if err != nil {
		return 0, err
	}

	query := s.dialect.InsertStatement(table, columns, "id")

	if s.dialect.Returning {
		var id int64
		if err := q.QueryRowContext(ctx, query, entity.ToRow()...).Scan(&id); err != nil {
			return 0, errors.Wrapf(err, "error inserting into %s", table)
		}

		return id, nil
	}

	result, err := q.ExecContext(ctx, query, entity.ToRow()...)
	if err != nil {
		return 0, errors.Wrapf(err, "error inserting into %s", table)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, errors.Wrapf(err, "error reading generated key of %s", table)
	}

	return id, nil
}

// execOne executes a statement that must touch exactly one row.
func execOne(ctx context.Context, q dbx.Querier, query string, args ...any) error {
	result, err := q.ExecContext(ctx, query, args...)
	if err != nil {
		return errors.WithStack(err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return errors.WithStack(err)
	}

	if affected == 0 {
		return ErrNotFound
	}

	return nil
}

func scanDelivery(rows *sql.Rows) (Delivery, error) {
	var d Delivery
	var carrier, tracking, address, date, status sql.NullString
	var notes, method, currency sql.NullString
	var cost sql.NullFloat64

	err := rows.Scan(&d.ID, &d.ExportationID, &carrier, &tracking, &address, &date,
		&status, &notes, &method, &cost, &currency)
	if err != nil {
		return Delivery{}, errors.WithStack(err)
	}

	d.CarrierName = carrier.String
	d.TrackingNumber = tracking.String
	d.DeliveryAddress = address.String
	d.DeliveryDate = date.String
	d.Status = status.String
	d.Notes = notes.String
	d.ShippingMethod = method.String
	d.ShippingCost = cost.Float64
	d.ShippingCurrency = currency.String

	return d, nil
}
