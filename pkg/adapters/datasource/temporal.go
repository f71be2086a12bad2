package datasource

import (
	"strings"
	"time"
)

// Column type names that engines know how to render temporal literals for.
const (
	TemporalDate          = "DATE"
	TemporalDatetime      = "DATETIME"
	TemporalSmallDatetime = "SMALLDATETIME"
	TemporalText          = "TEXT"
	TemporalTime          = "TIME"
	TemporalTimestamp     = "TIMESTAMP"
)

// NormalizeTemporalType upper-cases a column type name for comparison.
func NormalizeTemporalType(targetType string) string {
	return strings.ToUpper(strings.TrimSpace(targetType))
}

// ISODate formats t as 2019-01-02.
func ISODate(t time.Time) string {
	return t.Format("2006-01-02")
}

// ISOSeconds formats t as 2019-01-02<sep>03:04:05.
func ISOSeconds(t time.Time, sep string) string {
	return t.Format("2006-01-02") + sep + t.Format("15:04:05")
}

// ISOMillis formats t as 2019-01-02<sep>03:04:05.678.
func ISOMillis(t time.Time, sep string) string {
	return t.Format("2006-01-02") + sep + t.Format("15:04:05.000")
}

// ISOMicros formats t as 2019-01-02<sep>03:04:05.678900.
func ISOMicros(t time.Time, sep string) string {
	return t.Format("2006-01-02") + sep + t.Format("15:04:05.000000")
}
