package postgres

import (
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5/pgtype"
)

var typeMap = pgtype.NewMap()

// typeName maps a type OID, or a type name, to an upper-case type name.
// Array types are reported as ELEM[]. Unknown OIDs return "UNKNOWN".
func typeName(typeCode string) string {
	typeCode = strings.TrimSpace(typeCode)
	oid, err := strconv.ParseUint(typeCode, 10, 32)
	if err != nil {
		return strings.ToUpper(typeCode)
	}
	return typeNameFromOID(uint32(oid))
}

func typeNameFromOID(oid uint32) string {
	t, ok := typeMap.TypeForOID(oid)
	if !ok {
		return "UNKNOWN"
	}
	name := strings.ToUpper(t.Name)
	if strings.HasPrefix(name, "_") {
		return name[1:] + "[]"
	}
	return name
}
