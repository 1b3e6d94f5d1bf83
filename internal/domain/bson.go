package domain

import (
	"fmt"
	"strings"
)

type BSONType string

const (
	BSONString   BSONType = "string"
	BSONDouble   BSONType = "double"
	BSONLong     BSONType = "long"
	BSONInt      BSONType = "int"
	BSONDecimal  BSONType = "decimal"
	BSONBool     BSONType = "bool"
	BSONDate     BSONType = "date"
	BSONObjectID BSONType = "objectId"
	BSONObject   BSONType = "object"
	BSONArray    BSONType = "array"
)

func (t BSONType) IsValid() bool {
	switch t {
	case BSONString, BSONDouble, BSONLong, BSONInt, BSONDecimal, BSONBool,
		BSONDate, BSONObjectID, BSONObject, BSONArray:
		return true
	default:
		return false
	}
}

type SortDirection int

const (
	Ascending  SortDirection = 1
	Descending SortDirection = -1
)

func (d SortDirection) IsValid() bool {
	return d == Ascending || d == Descending
}

func (d SortDirection) String() string {
	switch d {
	case Ascending:
		return "asc"
	case Descending:
		return "desc"
	default:
		return fmt.Sprintf("invalid(%d)", int(d))
	}
}

// ParseSortDirection accepts asc/desc spellings and the numeric 1/-1 form.
func ParseSortDirection(value string) (SortDirection, error) {
	switch strings.TrimSpace(strings.ToLower(value)) {
	case "", "1", "asc", "ascending":
		return Ascending, nil
	case "-1", "desc", "descending":
		return Descending, nil
	default:
		return 0, fmt.Errorf("%w: %s", ErrInvalidSortDirection, value)
	}
}
