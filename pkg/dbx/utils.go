package dbx

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"math"
	"reflect"

	"github.com/pkg/errors"

	"github.com/marcodd23/go-export-ledger/pkg/logx"
)

// GenerateRandomInt64Id generates a random, non-zero 64-bit ID.
//
// It is used to correlate the log lines of one transaction.
func GenerateRandomInt64Id() int64 {
	var idNum uint64

	for idNum == 0 {
		err := binary.Read(rand.Reader, binary.BigEndian, &idNum)
		if err != nil {
			logx.GetLogger().LogError(context.TODO(), "error generating 64-bit random ID", err)
			continue
		}

		idNum %= uint64(math.MaxInt64)
	}

	return int64(idNum)
}

// DeriveColumnNamesFromTags extracts column names from a struct's tags.
//
// Only exported fields carrying a non-empty tagKey value other than "-" are returned,
// in declaration order. The order matches the values returned by RowConvertibleEntity.ToRow
// for the models of this module, so the two can be used together to build INSERT statements.
//
// Example:
//
//	type Delivery struct {
//	    ID             int64  `db:"-"`
//	    ExportationID  string `db:"exportation_id"`
//	    TrackingNumber string `db:"tracking_number"`
//	}
//	columns, _ := DeriveColumnNamesFromTags(Delivery{}, "db")
//	// columns == []string{"exportation_id", "tracking_number"}
func DeriveColumnNamesFromTags[T any](entity T, tagKey string) ([]string, error) {
	t := reflect.TypeOf(entity)
	if t == nil {
		return nil, errors.New("expected a struct type, got nil")
	}

	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}

	if t.Kind() != reflect.Struct {
		return nil, errors.Errorf("expected a struct type, got %s", t.Kind())
	}

	var columnNames []string

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)

		// unexported
		if field.PkgPath != "" {
			continue
		}

		tag := field.Tag.Get(tagKey)
		if tag == "" || tag == "-" {
			continue
		}

		columnNames = append(columnNames, tag)
	}

	return columnNames, nil
}
